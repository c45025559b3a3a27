// Package activity keeps the user-facing status lines shown in the UI and
// returned over IPC.
package activity

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCapacity is the number of lines retained.
const DefaultCapacity = 1000

// Entry is one status line.
type Entry struct {
	Time    time.Time
	Message string
}

// String formats the entry as "HH:MM:SS - message".
func (e Entry) String() string {
	return e.Time.Format("15:04:05") + " - " + e.Message
}

// Log is a bounded, concurrency-safe list of status lines. Every line is also
// written to the structured logger.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
	subs    map[int]func(Entry)
	nextSub int

	logger *slog.Logger
	now    func() time.Time
}

// New returns a log holding at most capacity entries. A nil logger disables
// mirroring.
func New(capacity int, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]Entry, capacity),
		subs:    make(map[int]func(Entry)),
		logger:  logger,
		now:     time.Now,
	}
}

// Log appends msg and notifies subscribers.
func (l *Log) Log(msg string) {
	l.mu.Lock()
	e := Entry{Time: l.now(), Message: msg}
	idx := (l.start + l.size) % len(l.entries)
	l.entries[idx] = e
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
	subs := make([]func(Entry), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Info(msg, "source", "activity")
	}
	for _, fn := range subs {
		fn(e)
	}
}

// Logf formats and appends a line.
func (l *Log) Logf(format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...))
}

// Entries returns a copy of all retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}

// Lines returns the last n formatted lines; n <= 0 returns all.
func (l *Log) Lines(n int) []string {
	entries := l.Entries()
	if n > 0 && n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Subscribe registers fn to be called after every new entry. fn runs on the
// logging goroutine and must not block. The returned func unsubscribes.
func (l *Log) Subscribe(fn func(Entry)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}
