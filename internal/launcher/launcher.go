// Package launcher starts detached program instances.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when the executable path does not name a file.
	ErrNotFound = errors.New("executable not found")
	// ErrSpawn is returned when the OS refuses to start the process.
	ErrSpawn = errors.New("failed to start process")
)

// Request describes one instance to start.
type Request struct {
	ID      int    // instance id, used to name the manifest
	Path    string // executable
	Args    string // shell-quoted argument string
	WorkDir string // empty = directory of Path
}

// Spawned is the result of a successful launch.
type Spawned struct {
	Path     string // absolute executable path
	Argv     []string
	WorkDir  string
	SpawnPID int

	// Artifact is nil when manifests are disabled or could not be written.
	Artifact    *Artifact
	ArtifactErr error
}

// Launcher starts processes and writes their manifests to ArtifactDir.
type Launcher struct {
	artifactDir string // empty disables manifests
	logger      *slog.Logger
	now         func() time.Time
}

// New returns a launcher. An empty artifactDir disables manifests.
func New(artifactDir string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{artifactDir: artifactDir, logger: logger, now: time.Now}
}

// ArtifactDir returns the manifest directory, empty when disabled.
func (l *Launcher) ArtifactDir() string {
	return l.artifactDir
}

// Launch starts req detached from the controller and returns without
// waiting for it.
func (l *Launcher) Launch(req Request) (*Spawned, error) {
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Path)
	}

	argv, err := SplitArgs(req.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(path)
	}

	// Stdin, Stdout and Stderr stay nil, which connects them to the null device.
	cmd := exec.Command(path, argv...)
	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	pid := cmd.Process.Pid

	// Reap the child so an exited instance does not linger as a zombie.
	go func() {
		err := cmd.Wait()
		l.logger.Debug("spawned process exited", "pid", pid, "error", err)
	}()

	out := &Spawned{
		Path:     path,
		Argv:     argv,
		WorkDir:  workDir,
		SpawnPID: pid,
	}

	if l.artifactDir != "" {
		out.Artifact, out.ArtifactErr = WriteManifest(l.artifactDir, Manifest{
			ID:          req.ID,
			Path:        path,
			Args:        req.Args,
			WorkDir:     workDir,
			SpawnPID:    pid,
			LauncherPID: os.Getpid(),
			CreatedAt:   l.now(),
		})
	}

	l.logger.Info("process spawned", "id", req.ID, "path", path, "pid", pid, "workdir", workDir)
	return out, nil
}

// RemoveOwned deletes manifests written by this controller process and
// returns how many were removed.
func (l *Launcher) RemoveOwned() (int, error) {
	if l.artifactDir == "" {
		return 0, nil
	}
	manifests, err := ReadManifests(l.artifactDir)
	if err != nil {
		return 0, err
	}
	self := os.Getpid()
	removed := 0
	var errs []error
	for _, m := range manifests {
		if m.LauncherPID != self {
			continue
		}
		if err := os.Remove(m.file); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
