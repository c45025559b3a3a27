// Package placement moves an instance's main window to a screen position.
package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/multilaunch/internal/platform"
)

// ErrPosition wraps a move that the window system rejected.
var ErrPosition = errors.New("failed to position window")

// Windows is the subset of the platform backend placement needs.
type Windows interface {
	MainWindow(pid int) (platform.WindowID, error)
	MoveResize(windowID platform.WindowID, bounds platform.Rect) error
}

// Applier moves windows to fixed-size cells.
type Applier struct {
	windows       Windows
	width, height int
}

// New returns an applier that sizes every window to width x height.
func New(windows Windows, width, height int) *Applier {
	return &Applier{windows: windows, width: width, height: height}
}

// Size returns the window size applied on each move.
func (a *Applier) Size() (width, height int) {
	return a.width, a.height
}

// Apply moves pid's main window to (x, y). It returns platform.ErrNoWindow
// when the process has no window and ErrPosition when the move fails.
// Repeating a call is harmless.
func (a *Applier) Apply(ctx context.Context, pid, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	win, err := a.windows.MainWindow(pid)
	if err != nil {
		if errors.Is(err, platform.ErrNoWindow) {
			return fmt.Errorf("pid %d: %w", pid, err)
		}
		return fmt.Errorf("pid %d: %w: %w", pid, platform.ErrNoWindow, err)
	}
	return a.ApplyWindow(ctx, win, x, y)
}

// ApplyWindow moves a known window to (x, y).
func (a *Applier) ApplyWindow(ctx context.Context, win platform.WindowID, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bounds := platform.Rect{X: x, Y: y, Width: a.width, Height: a.height}
	if err := a.windows.MoveResize(win, bounds); err != nil {
		return fmt.Errorf("%w: window 0x%x to (%d, %d): %w", ErrPosition, uint32(win), x, y, err)
	}
	return nil
}
