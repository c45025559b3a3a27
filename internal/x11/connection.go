// Package x11 wraps the EWMH and ICCCM queries needed to find and move an
// application's main window.
package x11

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection is an X server connection and its root window.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	closeOnce sync.Once
}

// NewConnection connects to the display named by $DISPLAY.
func NewConnection() (*Connection, error) {
	return Dial("")
}

// Dial connects to display. An empty name means $DISPLAY.
func Dial(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		if display == "" {
			display = os.Getenv("DISPLAY")
		}
		return nil, fmt.Errorf("connect to display %q: %w", display, err)
	}
	return &Connection{XUtil: xu, Root: xu.RootWin()}, nil
}

// Close disconnects. Calling it more than once is harmless.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.XUtil.Conn().Close()
	})
}
