package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/1broseidon/multilaunch/internal/activity"
	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/coordinator"
	"github.com/1broseidon/multilaunch/internal/launcher"
	"github.com/1broseidon/multilaunch/internal/logging"
	"github.com/1broseidon/multilaunch/internal/platform"
	"github.com/1broseidon/multilaunch/internal/proctable"
	"github.com/1broseidon/multilaunch/internal/runtimepath"
)

const (
	// closeGraceWindows is how long Terminate waits after WM_CLOSE before
	// falling back to TerminateProcess.
	closeGraceWindows = 3 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// controller bundles everything a hosting command (daemon or tui) owns.
type controller struct {
	cfg         *config.Config
	logger      *slog.Logger
	logCloser   io.Closer
	backend     platform.Backend
	coord       *coordinator.Coordinator
	artifactDir string
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// resolveArtifactDir maps launch.artifact_dir to a directory. An empty
// result means manifests are disabled.
func resolveArtifactDir(cfg *config.Config) (string, error) {
	if cfg.Launch.ArtifactsDisabled() {
		return "", nil
	}
	dir := strings.TrimSpace(cfg.Launch.ArtifactDir)
	if dir == "" {
		return runtimepath.ArtifactDir()
	}
	return config.ExpandHome(dir)
}

// newController loads config, opens the log file and the window backend and
// wires the coordinator. console receives log output in addition to the
// file when non-nil.
func newController(configPath string, console io.Writer) (*controller, error) {
	res, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config

	logger, closer, err := logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Console:    console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logging: %w", err)
	}
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	if len(res.Files) > 0 {
		logger.Info("configuration loaded", "files", res.Files)
	} else {
		logger.Info("configuration loaded", "source", "defaults")
	}

	backend, err := platform.New()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to connect to window system: %w", err)
	}

	artifactDir, err := resolveArtifactDir(cfg)
	if err != nil {
		backend.Close()
		closer.Close()
		return nil, err
	}

	var closeGrace time.Duration
	if runtime.GOOS == "windows" {
		closeGrace = closeGraceWindows
	}

	act := activity.New(activity.DefaultCapacity, logger.With("component", "activity"))
	coord := coordinator.New(coordinator.Options{
		Config:     cfg,
		Launcher:   launcher.New(artifactDir, logger.With("component", "launcher")),
		Processes:  proctable.New(),
		Windows:    backend,
		Activity:   act,
		Logger:     logger,
		CloseGrace: closeGrace,
	})
	if res.Missing {
		coord.Say("config_defaults")
	}

	return &controller{
		cfg:         cfg,
		logger:      logger,
		logCloser:   closer,
		backend:     backend,
		coord:       coord,
		artifactDir: artifactDir,
	}, nil
}

// shutdown terminates every instance and releases resources.
func (c *controller) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.coord.Shutdown(ctx); err != nil {
		c.logger.Warn("shutdown incomplete", "error", err)
	}
	if err := c.backend.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		c.logger.Warn("failed to close window backend", "error", err)
	}
	c.logger.Info("controller stopped")
	if err := c.logCloser.Close(); err != nil {
		log.Printf("Failed to close log file: %v", err)
	}
}
