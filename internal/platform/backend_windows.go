//go:build windows

package platform

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procSetWindowPos   = user32.NewProc("SetWindowPos")
	procGetWindow      = user32.NewProc("GetWindow")
	procGetWindowRect  = user32.NewProc("GetWindowRect")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
	procIsZoomed       = user32.NewProc("IsZoomed")
	procShowWindow     = user32.NewProc("ShowWindow")
	procPostMessageW   = user32.NewProc("PostMessageW")
)

const (
	swpNoZOrder      = 0x0004
	swpNoActivate    = 0x0010
	gwOwner          = 4
	swShowNoActivate = 4
	wmClose          = 0x0010
)

// WindowsBackend drives top-level windows through user32.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// New returns the user32 backend.
func New() (Backend, error) {
	return &WindowsBackend{}, nil
}

// enumeration state shared with the single registered callback; EnumWindows
// calls it synchronously on the calling goroutine.
var (
	enumMu    sync.Mutex
	enumPID   uint32
	enumFound []windows.HWND

	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != enumPID {
			return 1
		}
		if !windows.IsWindowVisible(hwnd) {
			return 1
		}
		if owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner); owner != 0 {
			return 1
		}
		enumFound = append(enumFound, hwnd)
		return 1
	})
)

// MainWindow returns the first visible, unowned top-level window of pid.
func (b *WindowsBackend) MainWindow(pid int) (WindowID, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumPID = uint32(pid)
	enumFound = enumFound[:0]
	if err := windows.EnumWindows(enumCallback, unsafe.Pointer(nil)); err != nil {
		return 0, fmt.Errorf("enumerate windows: %w", err)
	}
	if len(enumFound) == 0 {
		return 0, ErrNoWindow
	}
	return WindowID(enumFound[0]), nil
}

// Describe returns title and geometry of a window.
func (b *WindowsBackend) Describe(windowID WindowID) (Window, error) {
	hwnd := windows.HWND(windowID)
	if !windows.IsWindow(hwnd) {
		return Window{}, fmt.Errorf("window 0x%x: %w", uint32(windowID), ErrNoWindow)
	}

	var pid uint32
	_, _ = windows.GetWindowThreadProcessId(hwnd, &pid)

	var r struct{ Left, Top, Right, Bottom int32 }
	procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))

	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))

	return Window{
		ID:    windowID,
		PID:   int(pid),
		Title: windows.UTF16ToString(buf[:n]),
		Bounds: Rect{
			X:      int(r.Left),
			Y:      int(r.Top),
			Width:  int(r.Right - r.Left),
			Height: int(r.Bottom - r.Top),
		},
	}, nil
}

// MoveResize un-maximises a window in place and then positions it without
// changing Z order or activation.
func (b *WindowsBackend) MoveResize(windowID WindowID, bounds Rect) error {
	hwnd := uintptr(windowID)
	if !windows.IsWindow(windows.HWND(hwnd)) {
		return fmt.Errorf("window 0x%x: %w", uint32(windowID), ErrNoWindow)
	}
	if zoomed, _, _ := procIsZoomed.Call(hwnd); zoomed != 0 {
		procShowWindow.Call(hwnd, swShowNoActivate)
	}
	ok, _, err := procSetWindowPos.Call(
		hwnd,
		0,
		uintptr(int32(bounds.X)),
		uintptr(int32(bounds.Y)),
		uintptr(int32(bounds.Width)),
		uintptr(int32(bounds.Height)),
		swpNoZOrder|swpNoActivate,
	)
	if ok == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// RequestClose posts WM_CLOSE to the window.
func (b *WindowsBackend) RequestClose(windowID WindowID) error {
	ok, _, err := procPostMessageW.Call(uintptr(windowID), wmClose, 0, 0)
	if ok == 0 {
		return fmt.Errorf("PostMessage(WM_CLOSE): %w", err)
	}
	return nil
}

// Close is a no-op; user32 needs no connection.
func (b *WindowsBackend) Close() error {
	return nil
}
