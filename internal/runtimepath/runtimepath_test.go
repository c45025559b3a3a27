package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix fallback chain")
	}
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/multilaunch-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPathAndArtifactDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if want := filepath.Join(td, "multilaunch.sock"); socket != want {
		t.Fatalf("SocketPath() = %q, want %q", socket, want)
	}

	dir, err := ArtifactDir()
	if err != nil {
		t.Fatalf("ArtifactDir() error: %v", err)
	}
	if want := filepath.Join(td, "multilaunch"); dir != want {
		t.Fatalf("ArtifactDir() = %q, want %q", dir, want)
	}
}
