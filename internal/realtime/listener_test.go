package realtime

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounceCollapsesBurst(t *testing.T) {
	l := NewListener(nil, "test", 30*time.Millisecond, nil)

	var calls atomic.Int32
	var mu sync.Mutex
	var last Change
	l.OnTable("articles", func(ch Change) {
		calls.Add(1)
		mu.Lock()
		last = ch
		mu.Unlock()
	})

	for i := 0; i < 8; i++ {
		l.offer(Change{Table: "articles", Op: OpUpdate, ID: "a1"})
	}
	l.offer(Change{Table: "articles", Op: OpDelete, ID: "a9"})

	time.Sleep(120 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("burst fired %d callbacks, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if last.Op != OpDelete || last.ID != "a9" {
		t.Errorf("callback saw %+v, want the latest change in the burst", last)
	}
}

func TestDebouncePerTable(t *testing.T) {
	l := NewListener(nil, "test", 20*time.Millisecond, nil)

	var articles, tickets atomic.Int32
	l.OnTable("articles", func(Change) { articles.Add(1) })
	l.OnTable("error_tickets", func(Change) { tickets.Add(1) })

	l.offer(Change{Table: "articles", Op: OpInsert, ID: "a1"})
	l.offer(Change{Table: "error_tickets", Op: OpInsert, ID: "t1"})
	l.offer(Change{Table: "error_tickets", Op: OpUpdate, ID: "t1"})

	time.Sleep(100 * time.Millisecond)

	if articles.Load() != 1 {
		t.Errorf("articles fired %d times, want 1", articles.Load())
	}
	if tickets.Load() != 1 {
		t.Errorf("tickets fired %d times, want 1 (burst collapsed)", tickets.Load())
	}
}

func TestDebounceSeparateBursts(t *testing.T) {
	l := NewListener(nil, "test", 20*time.Millisecond, nil)

	var calls atomic.Int32
	l.OnTable("stories", func(Change) { calls.Add(1) })

	l.offer(Change{Table: "stories", Op: OpUpdate, ID: "s1"})
	time.Sleep(80 * time.Millisecond)
	l.offer(Change{Table: "stories", Op: OpUpdate, ID: "s2"})
	time.Sleep(80 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("two separated events fired %d callbacks, want 2", got)
	}
}

func TestUnregisteredTableIsIgnored(t *testing.T) {
	l := NewListener(nil, "test", 10*time.Millisecond, nil)

	var calls atomic.Int32
	l.OnTable("articles", func(Change) { calls.Add(1) })

	l.offer(Change{Table: "settings", Op: OpUpdate, ID: "scheduler"})
	time.Sleep(50 * time.Millisecond)

	if calls.Load() != 0 {
		t.Error("callback fired for a table it was not registered on")
	}
}
