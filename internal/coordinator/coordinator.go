// Package coordinator orchestrates the instance lifecycle: launch, window
// resolution, placement, termination and liveness tracking.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/1broseidon/multilaunch/internal/activity"
	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/launcher"
	"github.com/1broseidon/multilaunch/internal/locator"
	"github.com/1broseidon/multilaunch/internal/monitor"
	"github.com/1broseidon/multilaunch/internal/placement"
	"github.com/1broseidon/multilaunch/internal/platform"
	"github.com/1broseidon/multilaunch/internal/proctable"
	"github.com/1broseidon/multilaunch/internal/registry"
)

var (
	ErrUnknownPosition  = errors.New("unknown position")
	ErrInstanceNotFound = errors.New("instance not found")
	ErrShuttingDown     = errors.New("coordinator is shutting down")
)

// Outcome describes what Terminate did to the instance's process.
type Outcome string

const (
	Terminated     Outcome = "terminated"
	AlreadyGone    Outcome = "already_gone"
	NotFound       Outcome = "not_found"
	TerminateError Outcome = "terminate_error"
)

// monitorStopTimeout bounds the wait for the liveness loop on shutdown.
const monitorStopTimeout = 2 * time.Second

// Spawner starts processes.
type Spawner interface {
	Launch(req launcher.Request) (*launcher.Spawned, error)
	RemoveOwned() (int, error)
}

// Processes is the process table.
type Processes interface {
	FindByName(ctx context.Context, key string) ([]proctable.Process, error)
	Alive(ctx context.Context, pid int) (bool, error)
	Terminate(ctx context.Context, pid int) error
}

// Windows is the window backend.
type Windows interface {
	MainWindow(pid int) (platform.WindowID, error)
	MoveResize(windowID platform.WindowID, bounds platform.Rect) error
	RequestClose(windowID platform.WindowID) error
}

// describer is implemented by backends that can report window metadata.
type describer interface {
	Describe(windowID platform.WindowID) (platform.Window, error)
}

// Options wires a Coordinator.
type Options struct {
	Config    *config.Config
	Launcher  Spawner
	Processes Processes
	Windows   Windows
	Activity  *activity.Log
	Logger    *slog.Logger

	// CloseGrace, when positive, makes Terminate first ask the main window
	// to close and wait this long before terminating the process.
	CloseGrace time.Duration
	// OnChange is called whenever the instance list changes.
	OnChange func()
}

// Stats summarises the registry.
type Stats struct {
	Instances int       `json:"instances"`
	Running   int       `json:"running"`
	Launching int       `json:"launching"`
	StartedAt time.Time `json:"started_at"`
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	cfg        *config.Config
	launcher   Spawner
	procs      Processes
	windows    Windows
	reg        *registry.Registry
	locator    *locator.Locator
	placer     *placement.Applier
	monitor    *monitor.Monitor
	activity   *activity.Log
	logger     *slog.Logger
	closeGrace time.Duration
	startedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	resolving map[int]context.CancelFunc
	onChange  func()
	draining  bool // set once Shutdown begins; no new background work

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a coordinator. Call Start to begin liveness monitoring.
func New(opts Options) *Coordinator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	act := opts.Activity
	if act == nil {
		act = activity.New(activity.DefaultCapacity, logger)
	}

	mon := cfg.Monitoring
	policy := locator.Policy{
		GraceDelay:     mon.GraceDelay.Duration(),
		Attempts:       mon.MaxPositionAttempts,
		Interval:       mon.PositionAttemptInterval.Duration(),
		AttemptTimeout: mon.Timeout.Duration(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:        cfg,
		launcher:   opts.Launcher,
		procs:      opts.Processes,
		windows:    opts.Windows,
		reg:        registry.New(),
		locator:    locator.New(opts.Processes, opts.Windows, policy, logger.With("component", "locator")),
		placer:     placement.New(opts.Windows, cfg.Defaults.WindowSize[0], cfg.Defaults.WindowSize[1]),
		activity:   act,
		logger:     logger,
		closeGrace: opts.CloseGrace,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		resolving:  make(map[int]context.CancelFunc),
		onChange:   opts.OnChange,
	}
	c.monitor = monitor.New(monitor.Config{
		Interval:     mon.CheckInterval.Duration(),
		QueryTimeout: mon.Timeout.Duration(),
		Logger:       logger.With("component", "monitor"),
		OnClosed: func(rec registry.Record) {
			c.Say("program_closed", "id", rec.ID)
			c.notify()
		},
		OnError: func(err error) {
			c.Say("errors.monitoring_error", "error", err)
		},
	}, c.reg, opts.Processes)
	return c
}

// Start begins the liveness loop.
func (c *Coordinator) Start() {
	c.monitor.Start(c.ctx)
}

// SetOnChange replaces the change callback.
func (c *Coordinator) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Say writes a catalogue message to the activity log.
func (c *Coordinator) Say(key string, kv ...any) {
	c.activity.Log(c.cfg.Message(key, kv...))
}

// Config returns the effective configuration.
func (c *Coordinator) Config() *config.Config {
	return c.cfg
}

// Activity returns the activity log.
func (c *Coordinator) Activity() *activity.Log {
	return c.activity
}

// Messages returns the last n activity lines; n <= 0 returns all.
func (c *Coordinator) Messages(n int) []string {
	return c.activity.Lines(n)
}

// Positions returns the position table.
func (c *Coordinator) Positions() config.PositionList {
	return c.cfg.Positions
}

// Snapshot returns a copy of every instance ordered by id.
func (c *Coordinator) Snapshot() []registry.View {
	return c.reg.Snapshot()
}

// Stats returns instance counts.
func (c *Coordinator) Stats() Stats {
	s := Stats{StartedAt: c.startedAt}
	for _, v := range c.reg.Snapshot() {
		s.Instances++
		switch v.Status {
		case registry.StatusRunning:
			s.Running++
		case registry.StatusLaunching:
			s.Launching++
		}
	}
	return s
}

// SweepNow runs one liveness sweep and returns how many instances exited.
func (c *Coordinator) SweepNow() int {
	return c.monitor.SweepNow()
}

// Launch starts path with args and places its window at positionName once
// it appears. It returns the new instance id as soon as the process has
// been spawned.
func (c *Coordinator) Launch(path, args, positionName string) (int, error) {
	if c.reg.Closed() {
		return 0, ErrShuttingDown
	}
	pos, ok := c.cfg.Position(positionName)
	if !ok {
		c.Say("errors.unknown_position", "position", positionName)
		return 0, fmt.Errorf("%w: %q", ErrUnknownPosition, positionName)
	}

	id := c.reg.NextID()
	spawned, err := c.launcher.Launch(launcher.Request{ID: id, Path: path, Args: args})
	if err != nil {
		if errors.Is(err, launcher.ErrNotFound) {
			c.Say("errors.program_not_found", "path", path)
		} else {
			c.Say("errors.program_execution_error", "id", id, "error", err)
		}
		return 0, err
	}
	if spawned.ArtifactErr != nil {
		c.logger.Warn("launch artifact not written", "id", id, "error", spawned.ArtifactErr)
	}

	c.Say("program_execution_start", "id", id)
	c.Say("program_name", "name", filepath.Base(spawned.Path))
	c.Say("position_set", "position", c.cfg.PositionLabel(pos.X(), pos.Y()))

	rec := registry.Record{
		ID:           id,
		Path:         spawned.Path,
		DisplayName:  filepath.Base(spawned.Path),
		MatchKey:     proctable.MatchKey(spawned.Path),
		Args:         args,
		PositionName: pos.Key,
		X:            pos.X(),
		Y:            pos.Y(),
		SpawnPID:     spawned.SpawnPID,
		LaunchedAt:   time.Now(),
	}
	if spawned.Artifact != nil {
		rec.Artifact = spawned.Artifact
	}

	// The resolution context is registered before the record becomes
	// visible so a concurrent Terminate can always cancel it.
	rctx, rcancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.resolving[id] = rcancel
	c.mu.Unlock()

	if !c.addWork() {
		c.finishResolution(id)
		c.abandonSpawn(spawned)
		return 0, ErrShuttingDown
	}
	if _, err := c.reg.Add(rec); err != nil {
		c.wg.Done()
		c.finishResolution(id)
		c.abandonSpawn(spawned)
		return 0, ErrShuttingDown
	}
	c.logger.Info("instance launched", "id", id, "path", rec.Path, "spawn_pid", rec.SpawnPID, "position", pos.Key)
	c.notify()

	go c.resolve(rctx, id, rec.MatchKey)

	return id, nil
}

// addWork reserves a slot for a background goroutine. It fails once
// Shutdown has begun so wg.Add never races wg.Wait.
func (c *Coordinator) addWork() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining {
		return false
	}
	c.wg.Add(1)
	return true
}

// abandonSpawn cleans up a process started while shutdown began.
func (c *Coordinator) abandonSpawn(spawned *launcher.Spawned) {
	ctx, cancel := c.queryContext()
	defer cancel()
	if err := c.procs.Terminate(ctx, spawned.SpawnPID); err != nil && !errors.Is(err, proctable.ErrProcessGone) {
		c.logger.Warn("failed to stop process spawned during shutdown", "pid", spawned.SpawnPID, "error", err)
	}
	if spawned.Artifact != nil {
		_ = spawned.Artifact.Remove()
	}
}

func (c *Coordinator) finishResolution(id int) {
	c.mu.Lock()
	if cancel, ok := c.resolving[id]; ok {
		cancel()
		delete(c.resolving, id)
	}
	c.mu.Unlock()
}

// resolve finds the instance's window, claims its PID and moves the window.
func (c *Coordinator) resolve(ctx context.Context, id int, matchKey string) {
	defer c.wg.Done()
	defer c.finishResolution(id)
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("resolution panic recovered", "id", id, "error", err)
		}
	}()

	c.Say("auto_position_start", "id", id)

	res, err := c.locator.Resolve(ctx, locator.Target{MatchKey: matchKey}, locator.Options{
		Exclude: func() map[int]bool { return c.reg.ClaimedPIDs(id) },
		Claim: func(r locator.Result) bool {
			if err := c.reg.ClaimPID(id, r.PID); err != nil {
				c.logger.Debug("pid claim rejected", "id", id, "pid", r.PID, "error", err)
				return false
			}
			return true
		},
		OnMiss: func(attempt int, err error) {
			if errors.Is(err, locator.ErrNoCandidate) || errors.Is(err, platform.ErrNoWindow) {
				c.Say("progress.waiting_for_process", "id", id, "attempt", attempt)
				return
			}
			c.Say("progress.attempt_error", "id", id, "attempt", attempt, "error", err)
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			// Terminated or shutting down; nothing left to report.
			return
		}
		c.logger.Info("window resolution exhausted", "id", id, "attempts", res.Attempts)
		c.Say("position_adjust_failed", "id", id)
		return
	}
	c.notify()
	c.logResolved(id, res)

	view, ok := c.reg.Get(id)
	if !ok {
		return
	}
	if err := c.placer.ApplyWindow(ctx, res.Window, view.X, view.Y); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("initial placement failed", "id", id, "pid", res.PID, "error", err)
		c.Say("warnings.position_not_applied", "id", id, "error", err)
		return
	}
	c.Say("position_adjust_success", "id", id, "pid", res.PID)
}

func (c *Coordinator) logResolved(id int, res locator.Result) {
	d, ok := c.windows.(describer)
	if !ok {
		c.logger.Info("window resolved", "id", id, "pid", res.PID, "attempts", res.Attempts)
		return
	}
	w, err := d.Describe(res.Window)
	if err != nil {
		c.logger.Debug("window describe failed", "id", id, "window", res.Window, "error", err)
		return
	}
	c.logger.Info("window resolved", "id", id, "pid", res.PID, "attempts", res.Attempts,
		"title", w.Title, "app_id", w.AppID, "bounds", w.Bounds)
}

// Reposition records a new target position for id and moves the window in
// the background.
func (c *Coordinator) Reposition(id int, positionName string) error {
	if c.reg.Closed() {
		return ErrShuttingDown
	}
	pos, ok := c.cfg.Position(positionName)
	if !ok {
		c.Say("errors.unknown_position", "position", positionName)
		return fmt.Errorf("%w: %q", ErrUnknownPosition, positionName)
	}
	view, err := c.reg.SetPosition(id, pos.Key, pos.X(), pos.Y())
	if err != nil {
		c.Say("errors.program_info_not_found", "id", id)
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	c.Say("progress.position_adjusting", "id", id, "position", c.cfg.PositionLabel(pos.X(), pos.Y()))
	c.notify()

	if !c.addWork() {
		return ErrShuttingDown
	}
	go c.applyPosition(view)
	return nil
}

func (c *Coordinator) applyPosition(view registry.View) {
	defer c.wg.Done()
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("reposition panic recovered", "id", view.ID, "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Monitoring.Timeout.Duration())
	defer cancel()

	var err error
	if view.PID != 0 {
		err = c.placer.Apply(ctx, view.PID, view.X, view.Y)
	} else {
		var res locator.Result
		res, err = c.locator.Probe(ctx, locator.Target{MatchKey: view.MatchKey}, func() map[int]bool {
			return c.reg.ClaimedPIDs(view.ID)
		})
		if err == nil {
			err = c.placer.ApplyWindow(ctx, res.Window, view.X, view.Y)
		}
	}

	switch {
	case err == nil:
		c.Say("position_adjust_manual_success", "id", view.ID)
	case errors.Is(err, platform.ErrNoWindow), errors.Is(err, locator.ErrNoCandidate):
		c.Say("warnings.process_not_found", "id", view.ID)
	case c.ctx.Err() != nil:
	default:
		c.logger.Warn("reposition failed", "id", view.ID, "error", err)
		c.Say("errors.position_adjust_error", "id", view.ID, "error", err)
	}
}

// Terminate stops instance id and forgets it. The record and its artifact
// are removed whatever happens to the process.
func (c *Coordinator) Terminate(id int) (Outcome, error) {
	rec, ok := c.reg.Take(id)
	if !ok {
		c.Say("errors.program_info_not_found", "id", id)
		return "", fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	c.finishResolution(id)
	c.Say("progress.program_terminating", "id", id)

	outcome := c.terminateRecord(rec)

	if rec.Artifact != nil {
		if err := rec.Artifact.Remove(); err != nil {
			c.Say("errors.artifact_remove_error", "path", rec.Artifact.Path(), "error", err)
		}
	}
	c.logger.Info("instance terminated", "id", id, "pid", rec.PID, "outcome", outcome)
	c.notify()
	return outcome, nil
}

func (c *Coordinator) terminateRecord(rec registry.Record) Outcome {
	ctx, cancel := c.queryContext()
	defer cancel()

	pid := rec.PID
	if pid == 0 {
		// Unresolved: fall back to the first same-named process no other
		// instance owns.
		procs, err := c.procs.FindByName(ctx, rec.MatchKey)
		if err != nil {
			c.Say("errors.terminate_error", "id", rec.ID, "error", err)
			return TerminateError
		}
		claimed := c.reg.ClaimedPIDs(rec.ID)
		for _, p := range procs {
			if !claimed[p.PID] {
				pid = p.PID
				break
			}
		}
		if pid == 0 {
			c.Say("warnings.process_not_found", "id", rec.ID)
			return NotFound
		}
	}

	err := c.stopProcess(ctx, pid)
	switch {
	case err == nil:
		c.Say("program_terminated", "id", rec.ID, "pid", pid)
		return Terminated
	case errors.Is(err, proctable.ErrProcessGone):
		c.Say("warnings.process_already_terminated", "id", rec.ID, "pid", pid)
		return AlreadyGone
	default:
		c.Say("errors.terminate_error", "id", rec.ID, "error", err)
		return TerminateError
	}
}

// stopProcess optionally asks the window to close before terminating pid.
func (c *Coordinator) stopProcess(ctx context.Context, pid int) error {
	if c.closeGrace > 0 {
		if win, err := c.windows.MainWindow(pid); err == nil && c.windows.RequestClose(win) == nil {
			if c.waitExit(ctx, pid, c.closeGrace) {
				return nil
			}
		}
	}
	return c.procs.Terminate(ctx, pid)
}

func (c *Coordinator) waitExit(ctx context.Context, pid int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for {
		if alive, err := c.procs.Alive(ctx, pid); err == nil && !alive {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// TerminateAll terminates every instance and removes leftover artifacts.
func (c *Coordinator) TerminateAll() {
	c.Say("progress.all_programs_terminating")
	for _, id := range c.reg.IDs() {
		if _, err := c.Terminate(id); err != nil {
			c.logger.Debug("terminate during terminate-all", "id", id, "error", err)
		}
	}
	if n, err := c.launcher.RemoveOwned(); err != nil {
		c.logger.Warn("failed to remove leftover artifacts", "error", err)
	} else if n > 0 {
		c.logger.Info("removed leftover artifacts", "count", n)
	}
	c.Say("all_programs_terminated")
	c.notify()
}

// Shutdown stops accepting work, cancels pending resolutions, terminates all
// instances and stops the monitor. It waits for background work until ctx
// expires.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.draining = true
		c.mu.Unlock()

		c.reg.Close()
		c.cancel()
		c.TerminateAll()
		c.monitor.Stop(monitorStopTimeout)

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			c.shutdownErr = fmt.Errorf("waiting for background work: %w", ctx.Err())
		}
	})
	return c.shutdownErr
}

// queryContext bounds a single OS interaction. It does not derive from the
// coordinator context so termination still works during shutdown.
func (c *Coordinator) queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.cfg.Monitoring.Timeout.Duration())
}
