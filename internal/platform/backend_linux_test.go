//go:build linux

package platform

import (
	"errors"
	"testing"
)

func TestLinuxBackendWithoutConnection(t *testing.T) {
	b := NewLinuxBackend(nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"main window", func() error { _, err := b.MainWindow(1); return err }},
		{"describe", func() error { _, err := b.Describe(1); return err }},
		{"move resize", func() error { return b.MoveResize(1, Rect{Width: 10, Height: 10}) }},
		{"request close", func() error { return b.RequestClose(1) }},
		{"close", b.Close},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, errNoConnection) {
				t.Fatalf("err = %v, want errNoConnection", err)
			}
		})
	}
}

func TestLinuxBackendCloseReleasesConnection(t *testing.T) {
	b, err := NewLinuxBackendFromDisplay()
	if err != nil {
		t.Skipf("no X display: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); !errors.Is(err, errNoConnection) {
		t.Fatalf("second Close = %v, want errNoConnection", err)
	}
	if _, err := b.MainWindow(1); !errors.Is(err, errNoConnection) {
		t.Fatalf("MainWindow after Close = %v, want errNoConnection", err)
	}
}
