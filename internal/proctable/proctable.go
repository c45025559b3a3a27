// Package proctable queries the operating system process table.
package proctable

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ErrProcessGone is returned when the target process no longer exists.
var ErrProcessGone = errors.New("process no longer exists")

// Process is one entry of the process table.
type Process struct {
	PID  int
	Name string
}

// MatchKey returns the executable base name without its extension.
func MatchKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Matches reports whether the image name refers to key. Comparison ignores
// case and the extension, so "Game.EXE" matches "game".
func Matches(name, key string) bool {
	if key == "" || name == "" {
		return false
	}
	if strings.EqualFold(name, key) {
		return true
	}
	return strings.EqualFold(MatchKey(name), key)
}

// OS is the process table of the running system.
type OS struct{}

// New returns the system process table.
func New() *OS {
	return &OS{}
}

// FindByName lists processes whose image name matches key, in the order the
// OS enumerates them. Processes that exit during the scan are skipped.
func (OS) FindByName(ctx context.Context, key string) ([]Process, error) {
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	var out []Process
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if Matches(name, key) {
			out = append(out, Process{PID: int(p.Pid), Name: name})
		}
	}
	return out, nil
}

// Alive reports whether pid exists and is not a zombie.
func (OS) Alive(ctx context.Context, pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	exists, err := gopsproc.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return false, fmt.Errorf("query pid %d: %w", pid, err)
	}
	if !exists {
		return false, nil
	}
	p, err := gopsproc.NewProcessWithContext(ctx, int32(pid))
	if errors.Is(err, gopsproc.ErrorProcessNotRunning) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query pid %d: %w", pid, err)
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		// Status is not available everywhere; existence is enough.
		return true, nil
	}
	return !slices.Contains(status, gopsproc.Zombie), nil
}

// Terminate asks pid to exit (SIGTERM on Unix, TerminateProcess on Windows).
// ErrProcessGone is returned when it has already exited.
func (t OS) Terminate(ctx context.Context, pid int) error {
	p, err := gopsproc.NewProcessWithContext(ctx, int32(pid))
	if errors.Is(err, gopsproc.ErrorProcessNotRunning) {
		return ErrProcessGone
	}
	if err != nil {
		return fmt.Errorf("open pid %d: %w", pid, err)
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		if alive, qerr := t.Alive(ctx, pid); qerr == nil && !alive {
			return ErrProcessGone
		}
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}
