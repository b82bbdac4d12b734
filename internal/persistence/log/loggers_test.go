package log

import (
	"bytes"
	stdlog "log"
	"os"
	"strings"
	"testing"

	"worldevents.ai/internal/sim/director"
)

func TestJournal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, nil)
	j.Record(director.LifecycleEntry{Tick: 5, InstanceID: "a1", Archetype: "airdrop", Transition: director.TransitionSpawned})
	j.Record(director.LifecycleEntry{Tick: 90, InstanceID: "a1", Archetype: "airdrop", Transition: director.TransitionFailed, Reason: "timeout"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := JournalFiles(dir)
	if err != nil {
		t.Fatalf("JournalFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files=%v", files)
	}

	var got []director.LifecycleEntry
	if err := ReadJournal(files[0], func(e director.LifecycleEntry) bool {
		got = append(got, e)
		return true
	}); err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries=%d want 2", len(got))
	}
	if got[1].Transition != director.TransitionFailed || got[1].Reason != "timeout" || got[1].Tick != 90 {
		t.Fatalf("second entry: %+v", got[1])
	}
}

func TestReadJournal_StopsEarly(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, nil)
	for i := 0; i < 5; i++ {
		j.Record(director.LifecycleEntry{Tick: uint64(i)})
	}
	_ = j.Close()

	files, _ := JournalFiles(dir)
	n := 0
	if err := ReadJournal(files[0], func(director.LifecycleEntry) bool {
		n++
		return n < 2
	}); err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if n != 2 {
		t.Fatalf("visited=%d want 2", n)
	}
}

func TestJournal_LogsWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	// A regular file where the directory should be makes rotation fail.
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir+"/blocked", "lifecycle")
	j := &Journal{w: w, logger: stdlog.New(&buf, "", 0)}
	if err := writeFile(dir+"/blocked", "x"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	j.Record(director.LifecycleEntry{InstanceID: "z9", Transition: director.TransitionSpawned})
	if !strings.Contains(buf.String(), "instance=z9") {
		t.Fatalf("expected logged failure, got %q", buf.String())
	}
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
