package clock

import "testing"

func TestAfterFiresAtDueTick(t *testing.T) {
	c := New(10)
	var firedAt uint64
	c.After(3, func(now uint64) { firedAt = now })

	for i := 0; i < 2; i++ {
		c.Advance()
	}
	if firedAt != 0 {
		t.Fatalf("fired early at %d", firedAt)
	}
	c.Advance()
	if firedAt != 13 {
		t.Fatalf("expected fire at tick 13, got %d", firedAt)
	}
}

func TestCancelPreventsFire(t *testing.T) {
	c := New(0)
	fired := false
	h := c.After(1, func(uint64) { fired = true })
	if !h.Cancel() {
		t.Fatalf("expected first cancel to report pending")
	}
	if h.Cancel() {
		t.Fatalf("second cancel should be a no-op")
	}
	c.Advance()
	if fired {
		t.Fatalf("cancelled action fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending actions, got %d", c.Pending())
	}
}

func TestActionsRunInDueOrderAndMayReschedule(t *testing.T) {
	c := New(0)
	var order []int
	c.After(2, func(uint64) { order = append(order, 2) })
	c.After(1, func(uint64) {
		order = append(order, 1)
		c.After(0, func(uint64) { order = append(order, 3) })
	})
	c.Advance()
	c.Advance()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestCancelAfterFireReportsFalse(t *testing.T) {
	c := New(0)
	h := c.After(1, func(uint64) {})
	c.Advance()
	if h.Pending() {
		t.Fatalf("fired handle should not be pending")
	}
	if h.Cancel() {
		t.Fatalf("cancel after fire should report false")
	}
}
