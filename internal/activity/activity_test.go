package activity

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 9, 4, 5, 0, time.Local)
	return func() time.Time { return t0 }
}

func TestEntryFormat(t *testing.T) {
	l := New(10, nil)
	l.now = fixedClock()
	l.Log("Program #1 has closed.")

	lines := l.Lines(0)
	if len(lines) != 1 || lines[0] != "09:04:05 - Program #1 has closed." {
		t.Fatalf("lines = %q", lines)
	}
}

func TestCapacityKeepsNewest(t *testing.T) {
	l := New(DefaultCapacity, nil)
	for i := 0; i < DefaultCapacity+250; i++ {
		l.Logf("line %d", i)
	}

	if got := l.Len(); got != DefaultCapacity {
		t.Fatalf("Len = %d, want %d", got, DefaultCapacity)
	}
	entries := l.Entries()
	if entries[0].Message != "line 250" {
		t.Fatalf("oldest = %q, want line 250", entries[0].Message)
	}
	if last := entries[len(entries)-1].Message; last != fmt.Sprintf("line %d", DefaultCapacity+249) {
		t.Fatalf("newest = %q", last)
	}
}

func TestLinesTail(t *testing.T) {
	l := New(5, nil)
	l.now = fixedClock()
	for i := 0; i < 4; i++ {
		l.Logf("m%d", i)
	}
	tail := l.Lines(2)
	if len(tail) != 2 || tail[0] != "09:04:05 - m2" || tail[1] != "09:04:05 - m3" {
		t.Fatalf("tail = %q", tail)
	}
}

func TestSubscribe(t *testing.T) {
	l := New(5, nil)

	var mu sync.Mutex
	var got []string
	cancel := l.Subscribe(func(e Entry) {
		mu.Lock()
		got = append(got, e.Message)
		mu.Unlock()
	})
	l.Log("a")
	cancel()
	l.Log("b")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("subscriber saw %q, want [a]", got)
	}
}
