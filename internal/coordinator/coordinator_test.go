package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/multilaunch/internal/activity"
	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/launcher"
	"github.com/1broseidon/multilaunch/internal/platform"
	"github.com/1broseidon/multilaunch/internal/proctable"
	"github.com/1broseidon/multilaunch/internal/registry"
)

type fakeSpawner struct {
	mu       sync.Mutex
	nextPID  int
	requests []launcher.Request
	removed  int
	// dir receives a real launch manifest per instance when set.
	dir string
	// onLaunch registers the spawned process with the process table.
	onLaunch func(pid int, key string)
}

func (f *fakeSpawner) Launch(req launcher.Request) (*launcher.Spawned, error) {
	if strings.Contains(req.Path, "missing") {
		return nil, fmt.Errorf("%w: %s", launcher.ErrNotFound, req.Path)
	}
	f.mu.Lock()
	f.nextPID++
	pid := 1000 + f.nextPID
	f.requests = append(f.requests, req)
	cb := f.onLaunch
	f.mu.Unlock()
	if cb != nil {
		cb(pid, proctable.MatchKey(req.Path))
	}
	spawned := &launcher.Spawned{Path: req.Path, SpawnPID: pid}
	if f.dir != "" {
		spawned.Artifact, spawned.ArtifactErr = launcher.WriteManifest(f.dir, launcher.Manifest{
			ID:          req.ID,
			Path:        req.Path,
			SpawnPID:    pid,
			LauncherPID: os.Getpid(),
		})
	}
	return spawned, nil
}

func (f *fakeSpawner) RemoveOwned() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
	return 0, nil
}

type fakeProcs struct {
	mu         sync.Mutex
	procs      map[int]string
	terminated []int
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{procs: make(map[int]string)}
}

func (f *fakeProcs) add(pid int, key string) {
	f.mu.Lock()
	f.procs[pid] = key
	f.mu.Unlock()
}

func (f *fakeProcs) kill(pid int) {
	f.mu.Lock()
	delete(f.procs, pid)
	f.mu.Unlock()
}

func (f *fakeProcs) FindByName(_ context.Context, key string) ([]proctable.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []proctable.Process
	for pid, name := range f.procs {
		if name == key {
			out = append(out, proctable.Process{PID: pid, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (f *fakeProcs) Alive(_ context.Context, pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.procs[pid]
	return ok, nil
}

func (f *fakeProcs) Terminate(_ context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.procs[pid]; !ok {
		return proctable.ErrProcessGone
	}
	delete(f.procs, pid)
	f.terminated = append(f.terminated, pid)
	return nil
}

type move struct {
	win    platform.WindowID
	bounds platform.Rect
}

type fakeWindows struct {
	mu      sync.Mutex
	windows map[int]platform.WindowID
	moves   []move
	closed  []platform.WindowID
	// onClose simulates the application exiting after WM_CLOSE.
	onClose func(win platform.WindowID)
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{windows: make(map[int]platform.WindowID)}
}

func (f *fakeWindows) add(pid int) {
	f.mu.Lock()
	f.windows[pid] = platform.WindowID(pid * 10)
	f.mu.Unlock()
}

func (f *fakeWindows) MainWindow(pid int) (platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	win, ok := f.windows[pid]
	if !ok {
		return 0, platform.ErrNoWindow
	}
	return win, nil
}

func (f *fakeWindows) Describe(win platform.WindowID) (platform.Window, error) {
	return platform.Window{ID: win, PID: int(win) / 10, Title: "client"}, nil
}

func (f *fakeWindows) MoveResize(win platform.WindowID, bounds platform.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, move{win, bounds})
	return nil
}

func (f *fakeWindows) RequestClose(win platform.WindowID) error {
	f.mu.Lock()
	f.closed = append(f.closed, win)
	cb := f.onClose
	f.mu.Unlock()
	if cb != nil {
		cb(win)
	}
	return nil
}

func (f *fakeWindows) movesSnapshot() []move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]move(nil), f.moves...)
}

type fixture struct {
	c       *Coordinator
	spawner *fakeSpawner
	procs   *fakeProcs
	windows *fakeWindows
	changes atomic.Int32
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Monitoring.GraceDelay = 0
	cfg.Monitoring.PositionAttemptInterval = 0
	cfg.Monitoring.MaxPositionAttempts = 3
	cfg.Monitoring.Timeout = 1
	cfg.Monitoring.CheckInterval = 60
	return cfg
}

// newFixture wires a coordinator whose launched processes immediately own a
// main window unless withWindows is false.
func newFixture(t *testing.T, withWindows bool) *fixture {
	t.Helper()
	f := &fixture{
		spawner: &fakeSpawner{dir: t.TempDir()},
		procs:   newFakeProcs(),
		windows: newFakeWindows(),
	}
	f.spawner.onLaunch = func(pid int, key string) {
		f.procs.add(pid, key)
		if withWindows {
			f.windows.add(pid)
		}
	}
	f.c = New(Options{
		Config:    testConfig(),
		Launcher:  f.spawner,
		Processes: f.procs,
		Windows:   f.windows,
		Activity:  activity.New(100, nil),
		OnChange:  func() { f.changes.Add(1) },
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.c.Shutdown(ctx)
	})
	return f
}

func (f *fixture) wait() {
	f.c.wg.Wait()
}

// manifests counts the launch manifests still on disk.
func (f *fixture) manifests(t *testing.T) int {
	t.Helper()
	all, err := launcher.ReadManifests(f.spawner.dir)
	if err != nil {
		t.Fatalf("ReadManifests: %v", err)
	}
	return len(all)
}

func containsLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestLaunchResolvesAndPlacesWindow(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.c.Launch("/opt/game/client.exe", "-w", "top_left")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}
	f.wait()

	snap := f.c.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d records, want 1", len(snap))
	}
	if snap[0].Status != registry.StatusRunning || snap[0].PID != 1001 {
		t.Fatalf("record = %+v, want running with pid 1001", snap[0])
	}

	moves := f.windows.movesSnapshot()
	if len(moves) != 1 {
		t.Fatalf("got %d moves, want 1", len(moves))
	}
	want := platform.Rect{X: 0, Y: 0, Width: 640, Height: 480}
	if moves[0].bounds != want {
		t.Fatalf("bounds = %+v, want %+v", moves[0].bounds, want)
	}

	lines := f.c.Messages(0)
	for _, s := range []string{"#1", "client.exe", "Top Left"} {
		if !containsLine(lines, s) {
			t.Errorf("activity log missing %q: %v", s, lines)
		}
	}
	if f.changes.Load() == 0 {
		t.Error("OnChange was never called")
	}
}

func TestLaunchTwiceResolvesDistinctPIDs(t *testing.T) {
	f := newFixture(t, true)

	if _, err := f.c.Launch("/opt/game/client.exe", "", "top_left"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.Launch("/opt/game/client.exe", "", "top_mid"); err != nil {
		t.Fatal(err)
	}
	f.wait()

	snap := f.c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d records, want 2", len(snap))
	}
	if snap[0].PID == 0 || snap[1].PID == 0 {
		t.Fatalf("unresolved records: %+v", snap)
	}
	if snap[0].PID == snap[1].PID {
		t.Fatalf("both instances claimed pid %d", snap[0].PID)
	}
}

func TestLaunchValidation(t *testing.T) {
	f := newFixture(t, true)

	if _, err := f.c.Launch("/opt/game/client.exe", "", "nowhere"); !errors.Is(err, ErrUnknownPosition) {
		t.Fatalf("unknown position err = %v", err)
	}
	if _, err := f.c.Launch("/opt/missing.exe", "", "top_left"); !errors.Is(err, launcher.ErrNotFound) {
		t.Fatalf("missing program err = %v", err)
	}
	if n := len(f.c.Snapshot()); n != 0 {
		t.Fatalf("failed launches left %d records", n)
	}
	if !containsLine(f.c.Messages(0), "Program not found: /opt/missing.exe") {
		t.Fatalf("activity log = %v", f.c.Messages(0))
	}

	// The failed launch consumed id 1.
	id, err := f.c.Launch("/opt/game/client.exe", "", "top_left")
	if err != nil {
		t.Fatal(err)
	}
	if id != 2 {
		t.Fatalf("id = %d, want 2", id)
	}
}

func TestResolutionExhaustedLeavesLaunching(t *testing.T) {
	f := newFixture(t, false)

	id, err := f.c.Launch("/opt/game/client.exe", "", "top_left")
	if err != nil {
		t.Fatal(err)
	}
	f.wait()

	v, ok := f.c.reg.Get(id)
	if !ok {
		t.Fatal("record disappeared")
	}
	if v.Status != registry.StatusLaunching || v.PID != 0 {
		t.Fatalf("record = %+v, want launching without pid", v)
	}
	if len(f.windows.movesSnapshot()) != 0 {
		t.Fatal("window moved without resolution")
	}
}

func TestMonitorRemovesExitedInstance(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.c.Launch("/opt/game/client.exe", "", "top_left")
	if err != nil {
		t.Fatal(err)
	}
	f.wait()
	v, _ := f.c.reg.Get(id)

	f.procs.kill(v.PID)
	before := f.changes.Load()
	if n := f.c.SweepNow(); n != 1 {
		t.Fatalf("SweepNow removed %d, want 1", n)
	}
	if _, ok := f.c.reg.Get(id); ok {
		t.Fatal("exited instance still registered")
	}
	if f.changes.Load() == before {
		t.Fatal("OnChange not called for closed instance")
	}
	if !containsLine(f.c.Messages(0), "Program #1 has closed.") {
		t.Fatalf("activity log = %v", f.c.Messages(0))
	}
}

func TestTerminate(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.c.Launch("/opt/game/client.exe", "", "top_left")
	if err != nil {
		t.Fatal(err)
	}
	f.wait()
	v, _ := f.c.reg.Get(id)
	if n := f.manifests(t); n != 1 {
		t.Fatalf("%d manifests after launch, want 1", n)
	}

	out, err := f.c.Terminate(id)
	if err != nil {
		t.Fatal(err)
	}
	if out != Terminated {
		t.Fatalf("outcome = %q, want %q", out, Terminated)
	}
	if n := f.manifests(t); n != 0 {
		t.Fatalf("%d manifests left after terminate", n)
	}
	if alive, _ := f.procs.Alive(context.Background(), v.PID); alive {
		t.Fatal("process still alive")
	}
	if _, err := f.c.Terminate(id); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("second terminate err = %v", err)
	}
}

func TestTerminateOutcomes(t *testing.T) {
	t.Run("already gone", func(t *testing.T) {
		f := newFixture(t, true)
		id, _ := f.c.Launch("/opt/game/client.exe", "", "top_left")
		f.wait()
		v, _ := f.c.reg.Get(id)
		f.procs.kill(v.PID)

		out, err := f.c.Terminate(id)
		if err != nil || out != AlreadyGone {
			t.Fatalf("Terminate = %q, %v; want %q", out, err, AlreadyGone)
		}
		if len(f.c.Snapshot()) != 0 {
			t.Fatal("record kept after terminate")
		}
		if n := f.manifests(t); n != 0 {
			t.Fatalf("%d manifests left", n)
		}
	})

	t.Run("unresolved falls back to name scan", func(t *testing.T) {
		f := newFixture(t, false)
		id, _ := f.c.Launch("/opt/game/client.exe", "", "top_left")
		f.wait()

		out, err := f.c.Terminate(id)
		if err != nil || out != Terminated {
			t.Fatalf("Terminate = %q, %v; want %q", out, err, Terminated)
		}
		if len(f.c.Snapshot()) != 0 || f.manifests(t) != 0 {
			t.Fatal("record or manifest kept after terminate")
		}
	})

	t.Run("unresolved with no process", func(t *testing.T) {
		f := newFixture(t, false)
		id, _ := f.c.Launch("/opt/game/client.exe", "", "top_left")
		f.wait()
		f.procs.kill(1001)

		out, err := f.c.Terminate(id)
		if err != nil || out != NotFound {
			t.Fatalf("Terminate = %q, %v; want %q", out, err, NotFound)
		}
		if len(f.c.Snapshot()) != 0 || f.manifests(t) != 0 {
			t.Fatal("record or manifest kept after terminate")
		}
	})
}

func TestTerminateRequestsCloseFirst(t *testing.T) {
	f := newFixture(t, true)
	f.c.closeGrace = time.Second
	f.windows.onClose = func(win platform.WindowID) {
		f.procs.kill(int(win) / 10)
	}

	id, _ := f.c.Launch("/opt/game/client.exe", "", "top_left")
	f.wait()

	out, err := f.c.Terminate(id)
	if err != nil || out != Terminated {
		t.Fatalf("Terminate = %q, %v", out, err)
	}
	if len(f.windows.closed) != 1 {
		t.Fatalf("close requests = %d, want 1", len(f.windows.closed))
	}
	if len(f.procs.terminated) != 0 {
		t.Fatal("process was force-terminated after closing gracefully")
	}
}

func TestRepositionIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	id, _ := f.c.Launch("/opt/game/client.exe", "", "top_left")
	f.wait()

	for i := 0; i < 2; i++ {
		if err := f.c.Reposition(id, "bottom_right"); err != nil {
			t.Fatal(err)
		}
		f.wait()
	}

	moves := f.windows.movesSnapshot()
	if len(moves) != 3 {
		t.Fatalf("got %d moves, want 3", len(moves))
	}
	want := platform.Rect{X: 1280, Y: 480, Width: 640, Height: 480}
	if moves[1].bounds != want || moves[2].bounds != want {
		t.Fatalf("moves = %+v", moves)
	}
	v, _ := f.c.reg.Get(id)
	if v.PositionName != "bottom_right" {
		t.Fatalf("position = %q", v.PositionName)
	}

	if err := f.c.Reposition(id, "nowhere"); !errors.Is(err, ErrUnknownPosition) {
		t.Fatalf("unknown position err = %v", err)
	}
	if err := f.c.Reposition(99, "top_left"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
}

func TestTerminateAllAndShutdown(t *testing.T) {
	f := newFixture(t, true)
	for _, pos := range []string{"top_left", "top_mid", "top_right"} {
		if _, err := f.c.Launch("/opt/game/client.exe", "", pos); err != nil {
			t.Fatal(err)
		}
	}
	f.wait()
	if n := f.manifests(t); n != 3 {
		t.Fatalf("%d manifests after launch, want 3", n)
	}

	f.c.TerminateAll()
	if n := len(f.c.Snapshot()); n != 0 {
		t.Fatalf("%d records left", n)
	}
	if n := f.manifests(t); n != 0 {
		t.Fatalf("%d manifests left after terminate-all", n)
	}
	if len(f.procs.terminated) != 3 {
		t.Fatalf("terminated %v, want 3 pids", f.procs.terminated)
	}
	if f.spawner.removed != 1 {
		t.Fatalf("RemoveOwned called %d times", f.spawner.removed)
	}

	if err := f.c.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.Launch("/opt/game/client.exe", "", "top_left"); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("launch after shutdown err = %v", err)
	}
	if err := f.c.Reposition(1, "top_left"); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("reposition after shutdown err = %v", err)
	}
}

func TestLaunchDuringShutdown(t *testing.T) {
	f := newFixture(t, true)

	var launches sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		launches.Add(1)
		go func() {
			defer launches.Done()
			<-start
			if _, err := f.c.Launch("/opt/game/client.exe", "", "top_left"); err != nil && !errors.Is(err, ErrShuttingDown) {
				t.Errorf("Launch: %v", err)
			}
		}()
	}
	close(start)
	if err := f.c.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	launches.Wait()
	f.wait()

	if n := len(f.c.Snapshot()); n != 0 {
		t.Fatalf("%d records survived shutdown", n)
	}
	if n := f.manifests(t); n != 0 {
		t.Fatalf("%d manifests survived shutdown", n)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, false)
	_, _ = f.c.Launch("/opt/game/client.exe", "", "top_left")
	f.wait()

	s := f.c.Stats()
	if s.Instances != 1 || s.Launching != 1 || s.Running != 0 {
		t.Fatalf("stats = %+v", s)
	}
}
