package config

import (
	"fmt"
	"strings"
	"time"
)

// Seconds is a duration expressed in (possibly fractional) seconds in YAML.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// LauncherConfig holds top-level presentation settings.
type LauncherConfig struct {
	Title     string `yaml:"title"`
	LogHeight int    `yaml:"log_height"` // lines shown in the activity pane
}

// Defaults are the values preselected when launching a new instance.
type Defaults struct {
	Position   string `yaml:"position"`
	WindowSize [2]int `yaml:"window_size"` // width, height applied on every move
}

// Monitoring controls window resolution and the liveness sweep.
type Monitoring struct {
	CheckInterval           Seconds `yaml:"check_interval"`
	MaxPositionAttempts     int     `yaml:"max_position_attempts"`
	PositionAttemptInterval Seconds `yaml:"position_attempt_interval"`
	Timeout                 Seconds `yaml:"timeout"`
	GraceDelay              Seconds `yaml:"grace_delay"`
}

// LaunchConfig controls spawned process bookkeeping.
type LaunchConfig struct {
	// ArtifactDir holds launch manifests. Empty means the runtime dir default,
	// "-" disables manifests.
	ArtifactDir string `yaml:"artifact_dir"`
}

// ArtifactsDisabled reports whether launch manifests are turned off.
func (l LaunchConfig) ArtifactsDisabled() bool {
	return strings.TrimSpace(l.ArtifactDir) == "-"
}

// LoggingConfig configures the structured log file.
type LoggingConfig struct {
	File       string `yaml:"file"` // empty = ~/.local/share/multilaunch/multilaunch.log
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the effective configuration used at runtime.
type Config struct {
	Launcher      LauncherConfig `yaml:"launcher"`
	Positions     PositionList   `yaml:"positions"`
	Defaults      Defaults       `yaml:"defaults"`
	DefaultParams string         `yaml:"default_params"`
	Monitoring    Monitoring     `yaml:"monitoring"`
	Launch        LaunchConfig   `yaml:"launch"`
	Logging       LoggingConfig  `yaml:"logging"`
	UI            Catalog        `yaml:"ui"`
	Messages      Catalog        `yaml:"messages"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Launcher: LauncherConfig{
			Title:     "Multi Launcher",
			LogHeight: 12,
		},
		Positions: BuiltinPositions(),
		Defaults: Defaults{
			Position:   "top_left",
			WindowSize: [2]int{640, 480},
		},
		Monitoring: Monitoring{
			CheckInterval:           5,
			MaxPositionAttempts:     10,
			PositionAttemptInterval: 2,
			Timeout:                 5,
			GraceDelay:              2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		UI:       BuiltinUIText(),
		Messages: BuiltinMessages(),
	}
}

// Position returns the named position table entry.
func (c *Config) Position(key string) (Position, bool) {
	return c.Positions.Get(key)
}

// PositionLabel returns the label of the first position at (x, y), or the
// coordinates formatted as "(x, y)" when none matches.
func (c *Config) PositionLabel(x, y int) string {
	for _, p := range c.Positions {
		if p.X() == x && p.Y() == y {
			return p.Name
		}
	}
	return fmt.Sprintf("(%d, %d)", x, y)
}

// Message renders a message from the catalogue. kv are placeholder
// name/value pairs: Message("program_closed", "id", 3).
func (c *Config) Message(key string, kv ...any) string {
	return c.Messages.Format(key, kv...)
}

// Text returns UI text for key, or fallback when unset.
func (c *Config) Text(key, fallback string) string {
	if v, ok := c.UI.Lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

// Validate checks the effective configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Positions) == 0 {
		return &ValidationError{Path: "positions", Err: fmt.Errorf("at least one position is required")}
	}
	seen := make(map[string]struct{}, len(c.Positions))
	for _, p := range c.Positions {
		if strings.TrimSpace(p.Key) == "" {
			return &ValidationError{Path: "positions", Err: fmt.Errorf("position key must not be empty")}
		}
		if _, dup := seen[p.Key]; dup {
			return &ValidationError{Path: "positions." + p.Key, Err: fmt.Errorf("duplicate position %q", p.Key)}
		}
		seen[p.Key] = struct{}{}
	}
	if _, ok := c.Position(c.Defaults.Position); !ok {
		return &ValidationError{Path: "defaults.position", Err: fmt.Errorf("unknown position %q", c.Defaults.Position)}
	}
	if c.Defaults.WindowSize[0] <= 0 || c.Defaults.WindowSize[1] <= 0 {
		return &ValidationError{Path: "defaults.window_size", Err: fmt.Errorf("window_size must be two positive integers")}
	}
	if c.Launcher.LogHeight < 1 {
		return &ValidationError{Path: "launcher.log_height", Err: fmt.Errorf("log_height must be >= 1")}
	}
	if c.Monitoring.CheckInterval <= 0 {
		return &ValidationError{Path: "monitoring.check_interval", Err: fmt.Errorf("check_interval must be > 0")}
	}
	if c.Monitoring.MaxPositionAttempts < 1 {
		return &ValidationError{Path: "monitoring.max_position_attempts", Err: fmt.Errorf("max_position_attempts must be >= 1")}
	}
	if c.Monitoring.PositionAttemptInterval < 0 {
		return &ValidationError{Path: "monitoring.position_attempt_interval", Err: fmt.Errorf("position_attempt_interval must be >= 0")}
	}
	if c.Monitoring.Timeout <= 0 {
		return &ValidationError{Path: "monitoring.timeout", Err: fmt.Errorf("timeout must be > 0")}
	}
	if c.Monitoring.GraceDelay < 0 {
		return &ValidationError{Path: "monitoring.grace_delay", Err: fmt.Errorf("grace_delay must be >= 0")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return &ValidationError{Path: "logging", Err: fmt.Errorf("rotation values must be >= 0")}
	}
	return nil
}
