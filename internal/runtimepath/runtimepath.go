package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the runtime directory holding the control socket and launch
// manifests. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/multilaunch-runtime-<uid> (created)
//
// On Windows the per-user temp directory is used instead of 2) and 3).
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	if runtime.GOOS == "windows" {
		dir := filepath.Join(os.TempDir(), "multilaunch-runtime")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create runtime dir: %w", err)
		}
		return dir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/multilaunch-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the controller IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "multilaunch.sock"), nil
}

// ArtifactDir returns the default directory for launch manifests.
func ArtifactDir() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "multilaunch"), nil
}
