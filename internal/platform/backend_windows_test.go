//go:build windows

package platform

import (
	"runtime"
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	procCreateWindowExW     = user32.NewProc("CreateWindowExW")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
)

const (
	wsOverlappedWindow = 0x00CF0000
	wsMaximize         = 0x01000000
)

// maximizedWindow creates a hidden top-level window with the maximised
// style set, so it has never been activated.
func maximizedWindow(t *testing.T) uintptr {
	t.Helper()
	class, _ := windows.UTF16PtrFromString("STATIC")
	title, _ := windows.UTF16PtrFromString("multilaunch test")
	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(class)),
		uintptr(unsafe.Pointer(title)),
		wsOverlappedWindow|wsMaximize,
		0, 0, 800, 600,
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		t.Skipf("CreateWindowExW: %v", err)
	}
	t.Cleanup(func() { procDestroyWindow.Call(hwnd) })
	return hwnd
}

func TestMoveResizeUnmaximisesWithoutActivating(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hwnd := maximizedWindow(t)
	if zoomed, _, _ := procIsZoomed.Call(hwnd); zoomed == 0 {
		t.Skip("window did not start maximised")
	}

	b := &WindowsBackend{}
	want := Rect{X: 40, Y: 50, Width: 320, Height: 240}
	if err := b.MoveResize(WindowID(hwnd), want); err != nil {
		t.Fatalf("MoveResize: %v", err)
	}

	if zoomed, _, _ := procIsZoomed.Call(hwnd); zoomed != 0 {
		t.Fatal("window still maximised")
	}
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
		t.Fatal("window not shown")
	}
	if fg, _, _ := procGetForegroundWindow.Call(); fg == hwnd {
		t.Fatal("MoveResize activated the window")
	}
	got, err := b.Describe(WindowID(hwnd))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got.Bounds != want {
		t.Fatalf("bounds = %+v, want %+v", got.Bounds, want)
	}
}

func TestMoveResizeMissingWindow(t *testing.T) {
	b := &WindowsBackend{}
	if err := b.MoveResize(WindowID(0), Rect{Width: 1, Height: 1}); err == nil {
		t.Fatal("expected error for invalid window")
	}
}
