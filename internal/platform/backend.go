package platform

import "errors"

// ErrNoWindow is returned when a process has no main top-level window, either
// because it has not created one yet or because it has exited.
var ErrNoWindow = errors.New("process has no main window")

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	PID    int
	AppID  string
	Title  string
	Bounds Rect
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	// MainWindow returns the primary top-level window of pid, or ErrNoWindow.
	MainWindow(pid int) (WindowID, error)
	// Describe returns metadata for a window.
	Describe(windowID WindowID) (Window, error)
	// MoveResize moves and resizes a window without raising or focusing it.
	MoveResize(windowID WindowID, bounds Rect) error
	// RequestClose asks the owning application to close the window.
	RequestClose(windowID WindowID) error
	// Close releases the window-system connection.
	Close() error
}
