//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

// New reports that no window backend exists for this OS.
func New() (Backend, error) {
	return nil, fmt.Errorf("window placement is not supported on %s", runtime.GOOS)
}
