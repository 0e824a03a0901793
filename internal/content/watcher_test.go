package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

type countingRevisionMetrics struct{ n int }

func (c *countingRevisionMetrics) IncContentRevisionChange() { c.n++ }

func TestRevision_IgnoresIneligibleFiles(t *testing.T) {
	base := fstest.MapFS{"a.md": post("A", "2024-01-01", "")}
	r1, err := Revision(base, DefaultPatterns)
	if err != nil {
		t.Fatal(err)
	}
	base["notes.txt"] = &fstest.MapFile{Data: []byte("x")}
	r2, _ := Revision(base, DefaultPatterns)
	if r1 != r2 {
		t.Fatal("non-content file changed the revision")
	}
	base["b.mdx"] = post("B", "2024-01-01", "")
	r3, _ := Revision(base, DefaultPatterns)
	if r3 == r1 {
		t.Fatal("new content file did not change the revision")
	}
}

func TestWatcher_RefreshDetectsChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := &countingRevisionMetrics{}
	var notified string
	w, err := NewWatcher(WatcherOptions{Dir: dir, Metrics: m, OnChange: func(r string) { notified = r }})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	before := w.ContentRevision()
	if before == "" {
		t.Fatal("initial revision is empty")
	}

	if w.refresh(context.Background()) {
		t.Fatal("refresh without change reported a change")
	}
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !w.refresh(context.Background()) {
		t.Fatal("refresh after new file reported no change")
	}
	if w.ContentRevision() == before || notified != w.ContentRevision() || m.n != 1 {
		t.Fatalf("revision=%s notified=%s metric=%d", w.ContentRevision(), notified, m.n)
	}
}

func TestWatcher_OnChangePanicRecovered(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(WatcherOptions{Dir: dir, OnChange: func(string) { panic("boom") }})
	if err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("x"), 0o644)
	if !w.refresh(context.Background()) {
		t.Fatal("expected change")
	}
}

func TestWatcher_RunPicksUpEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(WatcherOptions{Dir: dir, Debounce: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	before := w.ContentRevision()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for w.ContentRevision() == before && time.Now().Before(deadline) {
		_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte(time.Now().String()), 0o644)
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	<-done

	if w.ContentRevision() == before {
		t.Fatal("watcher never observed the new file")
	}
}

func TestNewWatcher_RequiresDir(t *testing.T) {
	if _, err := NewWatcher(WatcherOptions{}); err == nil {
		t.Fatal("expected error")
	}
}
