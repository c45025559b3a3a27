// Package registry holds the in-memory table of launched instances.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an id that is not registered.
	ErrNotFound = errors.New("instance not found")
	// ErrClaimed is returned when a PID is already owned by another record.
	ErrClaimed = errors.New("pid already claimed")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("registry closed")
)

// Status is the lifecycle phase of an instance.
type Status string

const (
	StatusLaunching Status = "Launching"
	StatusRunning   Status = "Running"
	StatusClosed    Status = "Closed"
)

// Artifact is the per-instance file removed when the instance goes away.
type Artifact interface {
	Path() string
	Remove() error
}

// Record describes one launched instance.
type Record struct {
	ID           int
	Path         string // executable
	DisplayName  string // file name with extension
	MatchKey     string // file name without extension
	Args         string
	PositionName string
	X, Y         int
	Status       Status
	PID          int // resolved PID; 0 until the window is found
	SpawnPID     int
	LaunchedAt   time.Time
	Artifact     Artifact
}

// View is a copy of a record safe to hand to callers.
type View struct {
	ID           int       `json:"id"`
	Path         string    `json:"path"`
	DisplayName  string    `json:"display_name"`
	MatchKey     string    `json:"match_key"`
	Args         string    `json:"args"`
	PositionName string    `json:"position"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Status       Status    `json:"status"`
	PID          int       `json:"pid,omitempty"`
	SpawnPID     int       `json:"spawn_pid,omitempty"`
	LaunchedAt   time.Time `json:"launched_at"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
}

func (r *Record) view() View {
	v := View{
		ID:           r.ID,
		Path:         r.Path,
		DisplayName:  r.DisplayName,
		MatchKey:     r.MatchKey,
		Args:         r.Args,
		PositionName: r.PositionName,
		X:            r.X,
		Y:            r.Y,
		Status:       r.Status,
		PID:          r.PID,
		SpawnPID:     r.SpawnPID,
		LaunchedAt:   r.LaunchedAt,
	}
	if r.Artifact != nil {
		v.ArtifactPath = r.Artifact.Path()
	}
	return v
}

// Registry maps instance ids to records. One mutex guards membership and
// PID claims so a PID can never be owned by two records.
type Registry struct {
	mu      sync.Mutex
	nextID  int
	records map[int]*Record
	closed  bool
}

// New returns an empty registry whose first id is 1.
func New() *Registry {
	return &Registry{nextID: 1, records: make(map[int]*Record)}
}

// NextID reserves the next instance id. Ids are never reused, even when the
// launch that reserved one fails.
func (r *Registry) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Add registers rec. Its status is forced to Launching and any PID cleared.
func (r *Registry) Add(rec Record) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return View{}, ErrClosed
	}
	if rec.ID <= 0 || rec.ID >= r.nextID {
		return View{}, fmt.Errorf("instance id %d was not reserved", rec.ID)
	}
	if _, exists := r.records[rec.ID]; exists {
		return View{}, fmt.Errorf("instance %d already registered", rec.ID)
	}
	rec.Status = StatusLaunching
	rec.PID = 0
	r.records[rec.ID] = &rec
	return rec.view(), nil
}

// ClaimPID assigns pid to record id and marks it Running. It fails when the
// record is gone, already has a PID, another record owns pid, or the
// registry is closed.
func (r *Registry) ClaimPID(id, pid int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}
	if rec.PID != 0 {
		return fmt.Errorf("instance %d already resolved to pid %d: %w", id, rec.PID, ErrClaimed)
	}
	for _, other := range r.records {
		if other.PID == pid {
			return fmt.Errorf("pid %d owned by instance %d: %w", pid, other.ID, ErrClaimed)
		}
	}
	rec.PID = pid
	rec.Status = StatusRunning
	return nil
}

// ClaimedPIDs returns every resolved PID except the one owned by exceptID.
func (r *Registry) ClaimedPIDs(exceptID int) map[int]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]bool, len(r.records))
	for id, rec := range r.records {
		if id != exceptID && rec.PID != 0 {
			out[rec.PID] = true
		}
	}
	return out
}

// SetPosition updates the target position of id.
func (r *Registry) SetPosition(id int, name string, x, y int) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return View{}, fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}
	rec.PositionName = name
	rec.X, rec.Y = x, y
	return rec.view(), nil
}

// Get returns a copy of record id.
func (r *Registry) Get(id int) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return View{}, false
	}
	return rec.view(), true
}

// Take removes id and returns the removed record.
func (r *Registry) Take(id int) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	delete(r.records, id)
	return *rec, true
}

// MarkClosed removes id if it is still resolved to pid. The returned record
// has status Closed.
func (r *Registry) MarkClosed(id, pid int) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.PID == 0 || rec.PID != pid {
		return Record{}, false
	}
	rec.Status = StatusClosed
	delete(r.records, id)
	return *rec, true
}

// Resolved returns views of records that have a PID, ordered by id.
func (r *Registry) Resolved() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]View, 0, len(r.records))
	for _, rec := range r.records {
		if rec.PID != 0 {
			out = append(out, rec.view())
		}
	}
	sortViews(out)
	return out
}

// Snapshot returns views of all records ordered by id.
func (r *Registry) Snapshot() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]View, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.view())
	}
	sortViews(out)
	return out
}

// IDs returns registered ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.records))
	for id := range r.records {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Close rejects further Add and ClaimPID calls. Existing records stay until
// taken.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func sortViews(v []View) {
	sort.Slice(v, func(i, j int) bool { return v[i].ID < v[j].ID })
}
