// Package clock is the discrete global clock that drives the director.
//
// Time only moves when Advance is called. Deferred actions are owned by the
// caller through a Handle and can be cancelled at any point before they fire.
package clock

import (
	"container/heap"
	"sync"
)

type Action func(nowTick uint64)

type Clock struct {
	mu     sync.Mutex
	now    uint64
	nextID uint64
	queue  actionQueue
}

func New(startTick uint64) *Clock {
	return &Clock{now: startTick}
}

func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After schedules fn to run when the clock reaches now+delay.
// A zero delay fires on the next Advance.
func (c *Clock) After(delay uint64, fn Action) *Handle {
	if delay == 0 {
		delay = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	h := &Handle{clock: c, id: c.nextID, due: c.now + delay}
	heap.Push(&c.queue, &entry{handle: h, fn: fn})
	return h
}

// Advance moves the clock one tick forward and runs every action that became due.
// Actions run outside the clock lock so they may schedule or cancel other actions.
func (c *Clock) Advance() uint64 {
	c.mu.Lock()
	c.now++
	now := c.now
	var due []*entry
	for c.queue.Len() > 0 && c.queue[0].handle.due <= now {
		e := heap.Pop(&c.queue).(*entry)
		if e.handle.state != handlePending {
			continue
		}
		e.handle.state = handleFired
		due = append(due, e)
	}
	c.mu.Unlock()

	for _, e := range due {
		e.fn(now)
	}
	return now
}

// Pending reports how many live (not cancelled, not fired) actions are queued.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.queue {
		if e.handle.state == handlePending {
			n++
		}
	}
	return n
}

type handleState int

const (
	handlePending handleState = iota
	handleFired
	handleCancelled
)

type Handle struct {
	clock *Clock
	id    uint64
	due   uint64
	state handleState
}

// Cancel prevents the action from firing. It reports whether the action was still pending.
func (h *Handle) Cancel() bool {
	if h == nil || h.clock == nil {
		return false
	}
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.state != handlePending {
		return false
	}
	h.state = handleCancelled
	return true
}

func (h *Handle) Pending() bool {
	if h == nil || h.clock == nil {
		return false
	}
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	return h.state == handlePending
}

func (h *Handle) Due() uint64 {
	if h == nil {
		return 0
	}
	return h.due
}

type entry struct {
	handle *Handle
	fn     Action
}

type actionQueue []*entry

func (q actionQueue) Len() int { return len(q) }
func (q actionQueue) Less(i, j int) bool {
	if q[i].handle.due != q[j].handle.due {
		return q[i].handle.due < q[j].handle.due
	}
	return q[i].handle.id < q[j].handle.id
}
func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *actionQueue) Push(x any)   { *q = append(*q, x.(*entry)) }
func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
