package registry

import (
	"errors"
	"sync"
	"testing"
)

func addRecord(t *testing.T, r *Registry, name string) int {
	t.Helper()
	id := r.NextID()
	if _, err := r.Add(Record{ID: id, DisplayName: name, MatchKey: name, Status: StatusRunning, PID: 99}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return id
}

func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	r := New()
	a := addRecord(t, r, "a")
	burnt := r.NextID() // a failed launch
	b := addRecord(t, r, "b")
	if a != 1 || burnt != 2 || b != 3 {
		t.Fatalf("ids = %d, %d, %d", a, burnt, b)
	}
	r.Take(b)
	if c := addRecord(t, r, "c"); c != 4 {
		t.Fatalf("id after removal = %d, want 4", c)
	}
}

func TestAddNormalisesStatus(t *testing.T) {
	r := New()
	id := addRecord(t, r, "game")
	v, _ := r.Get(id)
	if v.Status != StatusLaunching || v.PID != 0 {
		t.Fatalf("new record = %+v", v)
	}
	if _, err := r.Add(Record{ID: 50}); err == nil {
		t.Fatalf("expected error for unreserved id")
	}
}

func TestClaimPIDUnique(t *testing.T) {
	r := New()
	a := addRecord(t, r, "game")
	b := addRecord(t, r, "game")

	if err := r.ClaimPID(a, 100); err != nil {
		t.Fatalf("ClaimPID: %v", err)
	}
	if err := r.ClaimPID(b, 100); !errors.Is(err, ErrClaimed) {
		t.Fatalf("duplicate claim err = %v", err)
	}
	if err := r.ClaimPID(a, 101); !errors.Is(err, ErrClaimed) {
		t.Fatalf("reassign err = %v", err)
	}
	if err := r.ClaimPID(999, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	v, _ := r.Get(a)
	if v.PID != 100 || v.Status != StatusRunning {
		t.Fatalf("claimed record = %+v", v)
	}
	claimed := r.ClaimedPIDs(b)
	if !claimed[100] || len(claimed) != 1 {
		t.Fatalf("ClaimedPIDs = %v", claimed)
	}
	if len(r.ClaimedPIDs(a)) != 0 {
		t.Fatalf("own pid should be excluded")
	}
}

func TestClaimPIDConcurrent(t *testing.T) {
	r := New()
	ids := make([]int, 20)
	for i := range ids {
		ids[i] = addRecord(t, r, "game")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if r.ClaimPID(id, 4242) == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
}

func TestCloseRejectsAddAndClaim(t *testing.T) {
	r := New()
	id := addRecord(t, r, "game")
	r.Close()

	if err := r.ClaimPID(id, 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("ClaimPID after Close = %v", err)
	}
	if _, err := r.Add(Record{ID: r.NextID()}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Add after Close = %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Close should keep existing records")
	}
}

func TestMarkClosedRequiresMatchingPID(t *testing.T) {
	r := New()
	id := addRecord(t, r, "game")

	if _, ok := r.MarkClosed(id, 0); ok {
		t.Fatalf("unresolved record must not be closed")
	}
	if err := r.ClaimPID(id, 77); err != nil {
		t.Fatalf("ClaimPID: %v", err)
	}
	if _, ok := r.MarkClosed(id, 78); ok {
		t.Fatalf("wrong pid closed the record")
	}
	rec, ok := r.MarkClosed(id, 77)
	if !ok || rec.Status != StatusClosed {
		t.Fatalf("MarkClosed = %+v, %v", rec, ok)
	}
	if r.Len() != 0 {
		t.Fatalf("record not removed")
	}
}

func TestSnapshotOrderedAndIsolated(t *testing.T) {
	r := New()
	for _, n := range []string{"a", "b", "c"} {
		addRecord(t, r, n)
	}
	r.Take(2)
	if _, err := r.SetPosition(3, "top_mid", 640, 0); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].ID != 1 || snap[1].ID != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap[1].PositionName != "top_mid" || snap[1].X != 640 {
		t.Fatalf("position not applied: %+v", snap[1])
	}
	snap[0].DisplayName = "mutated"
	if v, _ := r.Get(1); v.DisplayName != "a" {
		t.Fatalf("snapshot aliases registry state")
	}
	if _, err := r.SetPosition(2, "x", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetPosition on removed id = %v", err)
	}
}
