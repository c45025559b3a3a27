// Package locator finds the process and main window that belong to a freshly
// launched instance. Window creation is asynchronous, so the search is a
// bounded series of attempts.
package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/multilaunch/internal/platform"
	"github.com/1broseidon/multilaunch/internal/proctable"
)

// ErrResolutionExhausted is returned when every attempt failed.
var ErrResolutionExhausted = errors.New("window not found within attempt budget")

// ErrNoCandidate means no matching process had a main window.
var ErrNoCandidate = errors.New("no matching process with a main window")

// State is the phase of a resolution.
type State int

const (
	Searching State = iota
	Found
	Exhausted
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Policy bounds a resolution.
type Policy struct {
	GraceDelay     time.Duration // wait before the first attempt
	Attempts       int
	Interval       time.Duration // wait between attempts
	AttemptTimeout time.Duration // per-attempt deadline
}

// DefaultPolicy matches the built-in monitoring settings.
func DefaultPolicy() Policy {
	return Policy{
		GraceDelay:     2 * time.Second,
		Attempts:       10,
		Interval:       2 * time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

// Target identifies what to search for.
type Target struct {
	MatchKey string // image name without extension
	KnownPID int    // when set, only this PID is checked
}

// Result is the outcome of a resolution.
type Result struct {
	State    State
	PID      int
	Window   platform.WindowID
	Attempts int
}

// ProcessFinder lists processes by image name.
type ProcessFinder interface {
	FindByName(ctx context.Context, key string) ([]proctable.Process, error)
}

// WindowFinder maps a PID to its main window.
type WindowFinder interface {
	MainWindow(pid int) (platform.WindowID, error)
}

// Options customise a single Resolve call. All fields are optional.
type Options struct {
	// Exclude returns PIDs that must not be chosen. It is called once per
	// attempt so newly claimed PIDs are honoured.
	Exclude func() map[int]bool
	// Claim is offered each candidate; returning false rejects it and the
	// attempt counts as failed.
	Claim func(Result) bool
	// OnMiss is called after each failed attempt.
	OnMiss func(attempt int, err error)
}

// Locator runs resolutions.
type Locator struct {
	procs   ProcessFinder
	windows WindowFinder
	policy  Policy
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New returns a locator using policy.
func New(procs ProcessFinder, windows WindowFinder, policy Policy, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Locator{
		procs:   procs,
		windows: windows,
		policy:  policy,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Policy returns the policy in use.
func (l *Locator) Policy() Policy {
	return l.policy
}

// Resolve waits for target's main window. It returns a Found result, or an
// Exhausted result with ErrResolutionExhausted after exactly Policy.Attempts
// failed attempts. Cancelling ctx aborts with the context error.
func (l *Locator) Resolve(ctx context.Context, target Target, opts Options) (Result, error) {
	res := Result{State: Searching}

	if err := l.sleep(ctx, l.policy.GraceDelay); err != nil {
		return res, err
	}

	for attempt := 1; attempt <= l.policy.Attempts; attempt++ {
		res.Attempts = attempt

		found, err := l.attempt(ctx, target, opts.Exclude)
		if err == nil && opts.Claim != nil && !opts.Claim(found) {
			err = fmt.Errorf("pid %d already claimed", found.PID)
		}
		if err == nil {
			found.State = Found
			found.Attempts = attempt
			l.logger.Debug("window resolved", "match_key", target.MatchKey, "pid", found.PID, "window", found.Window, "attempt", attempt)
			return found, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		l.logger.Debug("resolution attempt failed", "match_key", target.MatchKey, "attempt", attempt, "error", err)
		if opts.OnMiss != nil {
			opts.OnMiss(attempt, err)
		}

		if attempt < l.policy.Attempts {
			if err := l.sleep(ctx, l.policy.Interval); err != nil {
				return res, err
			}
		}
	}

	res.State = Exhausted
	return res, ErrResolutionExhausted
}

// Probe performs a single attempt without the grace delay.
func (l *Locator) Probe(ctx context.Context, target Target, exclude func() map[int]bool) (Result, error) {
	res, err := l.attempt(ctx, target, exclude)
	res.Attempts = 1
	if err != nil {
		return res, err
	}
	res.State = Found
	return res, nil
}

// attempt runs one search bounded by AttemptTimeout. Window-system calls do
// not take a context, so the search runs on its own goroutine and is
// abandoned on timeout.
func (l *Locator) attempt(ctx context.Context, target Target, exclude func() map[int]bool) (Result, error) {
	actx := ctx
	if l.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.policy.AttemptTimeout)
		defer cancel()
	}

	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := l.search(actx, target, exclude)
		ch <- outcome{res, err}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-actx.Done():
		return Result{State: Searching}, fmt.Errorf("attempt timed out: %w", actx.Err())
	}
}

func (l *Locator) search(ctx context.Context, target Target, exclude func() map[int]bool) (Result, error) {
	if target.KnownPID > 0 {
		win, err := l.windows.MainWindow(target.KnownPID)
		if err != nil {
			return Result{State: Searching}, err
		}
		return Result{PID: target.KnownPID, Window: win}, nil
	}

	procs, err := l.procs.FindByName(ctx, target.MatchKey)
	if err != nil {
		return Result{State: Searching}, err
	}
	var excluded map[int]bool
	if exclude != nil {
		excluded = exclude()
	}
	for _, p := range procs {
		if excluded[p.PID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{State: Searching}, err
		}
		win, err := l.windows.MainWindow(p.PID)
		if err != nil {
			continue
		}
		return Result{PID: p.PID, Window: win}, nil
	}
	return Result{State: Searching}, ErrNoCandidate
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
