package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw overrides on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Launcher != nil {
		if raw.Launcher.Title != nil {
			cfg.Launcher.Title = *raw.Launcher.Title
		}
		cfg.Launcher.LogHeight = derefInt(raw.Launcher.LogHeight, cfg.Launcher.LogHeight)
	}
	if raw.Positions != nil {
		cfg.Positions = raw.Positions
	}
	if raw.Defaults != nil {
		if raw.Defaults.Position != nil {
			cfg.Defaults.Position = *raw.Defaults.Position
		}
		if raw.Defaults.WindowSize != nil {
			if len(raw.Defaults.WindowSize) != 2 {
				return nil, &ValidationError{Path: "defaults.window_size", Err: fmt.Errorf("window_size must be [width, height]")}
			}
			cfg.Defaults.WindowSize = [2]int{raw.Defaults.WindowSize[0], raw.Defaults.WindowSize[1]}
		}
	}
	if raw.DefaultParams != nil {
		cfg.DefaultParams = *raw.DefaultParams
	}
	if m := raw.Monitoring; m != nil {
		cfg.Monitoring.CheckInterval = derefSeconds(m.CheckInterval, cfg.Monitoring.CheckInterval)
		cfg.Monitoring.MaxPositionAttempts = derefInt(m.MaxPositionAttempts, cfg.Monitoring.MaxPositionAttempts)
		cfg.Monitoring.PositionAttemptInterval = derefSeconds(m.PositionAttemptInterval, cfg.Monitoring.PositionAttemptInterval)
		cfg.Monitoring.Timeout = derefSeconds(m.Timeout, cfg.Monitoring.Timeout)
		cfg.Monitoring.GraceDelay = derefSeconds(m.GraceDelay, cfg.Monitoring.GraceDelay)
	}
	if raw.Launch != nil && raw.Launch.ArtifactDir != nil {
		cfg.Launch.ArtifactDir = *raw.Launch.ArtifactDir
	}
	if l := raw.Logging; l != nil {
		if l.File != nil {
			cfg.Logging.File = *l.File
		}
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		cfg.Logging.MaxSizeMB = derefInt(l.MaxSizeMB, cfg.Logging.MaxSizeMB)
		cfg.Logging.MaxBackups = derefInt(l.MaxBackups, cfg.Logging.MaxBackups)
		cfg.Logging.MaxAgeDays = derefInt(l.MaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	cfg.UI = cfg.UI.merge(raw.UI)
	cfg.Messages = cfg.Messages.merge(raw.Messages)

	return cfg, nil
}

func derefInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func derefSeconds(v *Seconds, fallback Seconds) Seconds {
	if v == nil {
		return fallback
	}
	return *v
}
