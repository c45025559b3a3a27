//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/multilaunch/internal/x11"
)

// LinuxBackend serialises window-system calls over one X11 connection.
type LinuxBackend struct {
	mu   sync.Mutex
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

var errNoConnection = errors.New("x11 backend has no connection")

// New opens the platform backend for the current display.
func New() (Backend, error) {
	b, err := NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a connection to $DISPLAY.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// with runs fn on the connection while holding the backend lock.
func (b *LinuxBackend) with(fn func(conn *x11.Connection) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return errNoConnection
	}
	return fn(b.conn)
}

// Close closes the X11 connection. Later calls fail with errNoConnection.
func (b *LinuxBackend) Close() error {
	return b.with(func(conn *x11.Connection) error {
		conn.Close()
		b.conn = nil
		return nil
	})
}

// MainWindow returns the main window advertised for pid via _NET_WM_PID.
// Hidden windows do not count.
func (b *LinuxBackend) MainWindow(pid int) (WindowID, error) {
	var id WindowID
	err := b.with(func(conn *x11.Connection) error {
		win, ok, err := conn.MainWindowForPID(pid)
		if err != nil {
			return err
		}
		if !ok || conn.IsHidden(win) {
			return ErrNoWindow
		}
		id = WindowID(win)
		return nil
	})
	return id, err
}

// Describe returns class, title and geometry of a window.
func (b *LinuxBackend) Describe(windowID WindowID) (Window, error) {
	var w Window
	err := b.with(func(conn *x11.Connection) error {
		info, err := conn.Info(xproto.Window(windowID))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNoWindow, err)
		}
		w = Window{
			ID:     windowID,
			PID:    info.PID,
			AppID:  info.Class,
			Title:  info.Title,
			Bounds: Rect{X: info.X, Y: info.Y, Width: info.Width, Height: info.Height},
		}
		return nil
	})
	return w, err
}

// MoveResize moves and resizes a window without raising it.
func (b *LinuxBackend) MoveResize(windowID WindowID, bounds Rect) error {
	return b.with(func(conn *x11.Connection) error {
		return conn.MoveResizeWindow(xproto.Window(windowID), bounds.X, bounds.Y, bounds.Width, bounds.Height)
	})
}

// RequestClose asks the application to close the window.
func (b *LinuxBackend) RequestClose(windowID WindowID) error {
	return b.with(func(conn *x11.Connection) error {
		return conn.CloseWindow(xproto.Window(windowID))
	})
}
