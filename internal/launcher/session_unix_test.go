//go:build !windows

package launcher

import (
	"testing"

	"golang.org/x/sys/unix"
)

func checkOwnSession(t *testing.T, pid int) {
	t.Helper()
	sid, err := unix.Getsid(pid)
	if err != nil {
		t.Fatalf("getsid: %v", err)
	}
	if sid != pid {
		t.Fatalf("child sid = %d, want own session %d", sid, pid)
	}
}
