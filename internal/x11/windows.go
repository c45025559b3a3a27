package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowInfo describes a managed top-level window.
type WindowInfo struct {
	PID    int
	Class  string
	Title  string
	X, Y   int
	Width  int
	Height int
	Hidden bool
}

// states returns the window's _NET_WM_STATE as a set.
func (c *Connection) states(win xproto.Window) map[string]bool {
	list, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return nil
	}
	out := make(map[string]bool, len(list))
	for _, s := range list {
		out[s] = true
	}
	return out
}

// isNormal rejects desktops, docks, splash screens and notifications. A
// window without _NET_WM_WINDOW_TYPE counts as normal.
func (c *Connection) isNormal(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// MainWindowForPID returns the first window in _NET_CLIENT_LIST order whose
// _NET_WM_PID is pid and which is neither transient nor kept off the
// taskbar. A transient or skipped window is returned only when nothing
// better exists. ok is false when the process has no window.
func (c *Connection) MainWindowForPID(pid int) (win xproto.Window, ok bool, err error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, false, fmt.Errorf("read _NET_CLIENT_LIST: %w", err)
	}

	var fallback xproto.Window
	for _, w := range clients {
		if wpid, err := ewmh.WmPidGet(c.XUtil, w); err != nil || int(wpid) != pid {
			continue
		}
		if !c.isNormal(w) {
			continue
		}
		owner, err := icccm.WmTransientForGet(c.XUtil, w)
		secondary := (err == nil && owner != 0) || c.states(w)["_NET_WM_STATE_SKIP_TASKBAR"]
		if !secondary {
			return w, true, nil
		}
		if fallback == 0 {
			fallback = w
		}
	}
	return fallback, fallback != 0, nil
}

// Info reads pid, class, title, root-relative geometry and hidden state.
func (c *Connection) Info(win xproto.Window) (WindowInfo, error) {
	xc := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(xc, xproto.Drawable(win)).Reply()
	if err != nil {
		return WindowInfo{}, fmt.Errorf("window 0x%x: %w", uint32(win), err)
	}
	pos, err := xproto.TranslateCoordinates(xc, win, c.Root, 0, 0).Reply()
	if err != nil {
		return WindowInfo{}, fmt.Errorf("window 0x%x: %w", uint32(win), err)
	}

	info := WindowInfo{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
		Hidden: c.states(win)["_NET_WM_STATE_HIDDEN"],
	}
	if pid, err := ewmh.WmPidGet(c.XUtil, win); err == nil {
		info.PID = int(pid)
	}
	if class, err := icccm.WmClassGet(c.XUtil, win); err == nil {
		info.Class = strings.TrimSpace(class.Class)
	}
	if title, err := ewmh.WmNameGet(c.XUtil, win); err == nil && strings.TrimSpace(title) != "" {
		info.Title = strings.TrimSpace(title)
	} else if title, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		info.Title = strings.TrimSpace(title)
	}
	return info, nil
}

// IsHidden reports whether the window manager has hidden (iconified) win.
func (c *Connection) IsHidden(win xproto.Window) bool {
	return c.states(win)["_NET_WM_STATE_HIDDEN"]
}

// MoveResizeWindow un-maximizes win and moves it to the given geometry
// through the window manager, configuring it directly if the manager does
// not support _NET_MOVERESIZE_WINDOW. It fails only when win is gone.
func (c *Connection) MoveResizeWindow(win xproto.Window, x, y, width, height int) error {
	if _, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply(); err != nil {
		return fmt.Errorf("window 0x%x: %w", uint32(win), err)
	}

	for state := range c.states(win) {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_FULLSCREEN":
			_ = ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, state)
		}
	}

	if err := ewmh.MoveresizeWindow(c.XUtil, win, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, win).MoveResize(x, y, width, height)
	}
	return nil
}

// CloseWindow asks the window manager to close win (_NET_CLOSE_WINDOW). If
// that request cannot be sent, WM_DELETE_WINDOW goes to the client
// directly.
func (c *Connection) CloseWindow(win xproto.Window) error {
	if err := ewmh.CloseWindow(c.XUtil, win); err == nil {
		return nil
	}

	protocols, err := xprop.Atm(c.XUtil, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	deleteWindow, err := xprop.Atm(c.XUtil, "WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteWindow), 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, win, xproto.EventMaskNoEvent, string(ev.Bytes())).Check()
}
