package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLauncher struct {
	Title     *string `yaml:"title"`
	LogHeight *int    `yaml:"log_height"`
}

type RawDefaults struct {
	Position   *string `yaml:"position"`
	WindowSize []int   `yaml:"window_size,flow"`
}

type RawMonitoring struct {
	CheckInterval           *Seconds `yaml:"check_interval"`
	MaxPositionAttempts     *int     `yaml:"max_position_attempts"`
	PositionAttemptInterval *Seconds `yaml:"position_attempt_interval"`
	Timeout                 *Seconds `yaml:"timeout"`
	GraceDelay              *Seconds `yaml:"grace_delay"`
}

type RawLaunch struct {
	ArtifactDir *string `yaml:"artifact_dir"`
}

type RawLoggingConfig struct {
	File       *string `yaml:"file"`
	Level      *string `yaml:"level"`
	MaxSizeMB  *int    `yaml:"max_size_mb"`
	MaxBackups *int    `yaml:"max_backups"`
	MaxAgeDays *int    `yaml:"max_age_days"`
}

// RawConfig mirrors the YAML document. Nil fields were not set by any file.
type RawConfig struct {
	Include       IncludeList       `yaml:"include"`
	Launcher      *RawLauncher      `yaml:"launcher"`
	Positions     PositionList      `yaml:"positions"`
	Defaults      *RawDefaults      `yaml:"defaults"`
	DefaultParams *string           `yaml:"default_params"`
	Monitoring    *RawMonitoring    `yaml:"monitoring"`
	Launch        *RawLaunch        `yaml:"launch"`
	Logging       *RawLoggingConfig `yaml:"logging"`
	UI            Catalog           `yaml:"ui"`
	Messages      Catalog           `yaml:"messages"`
}

// merge overlays o on c. A later positions table replaces an earlier one as
// a whole; catalogue entries merge key by key.
func (c RawConfig) merge(o RawConfig) RawConfig {
	out := c

	if o.Launcher != nil {
		l := RawLauncher{}
		if c.Launcher != nil {
			l = *c.Launcher
		}
		if o.Launcher.Title != nil {
			l.Title = o.Launcher.Title
		}
		if o.Launcher.LogHeight != nil {
			l.LogHeight = o.Launcher.LogHeight
		}
		out.Launcher = &l
	}
	if o.Positions != nil {
		out.Positions = o.Positions
	}
	if o.Defaults != nil {
		d := RawDefaults{}
		if c.Defaults != nil {
			d = *c.Defaults
		}
		if o.Defaults.Position != nil {
			d.Position = o.Defaults.Position
		}
		if o.Defaults.WindowSize != nil {
			d.WindowSize = o.Defaults.WindowSize
		}
		out.Defaults = &d
	}
	if o.DefaultParams != nil {
		out.DefaultParams = o.DefaultParams
	}
	if o.Monitoring != nil {
		m := RawMonitoring{}
		if c.Monitoring != nil {
			m = *c.Monitoring
		}
		if o.Monitoring.CheckInterval != nil {
			m.CheckInterval = o.Monitoring.CheckInterval
		}
		if o.Monitoring.MaxPositionAttempts != nil {
			m.MaxPositionAttempts = o.Monitoring.MaxPositionAttempts
		}
		if o.Monitoring.PositionAttemptInterval != nil {
			m.PositionAttemptInterval = o.Monitoring.PositionAttemptInterval
		}
		if o.Monitoring.Timeout != nil {
			m.Timeout = o.Monitoring.Timeout
		}
		if o.Monitoring.GraceDelay != nil {
			m.GraceDelay = o.Monitoring.GraceDelay
		}
		out.Monitoring = &m
	}
	if o.Launch != nil {
		l := RawLaunch{}
		if c.Launch != nil {
			l = *c.Launch
		}
		if o.Launch.ArtifactDir != nil {
			l.ArtifactDir = o.Launch.ArtifactDir
		}
		out.Launch = &l
	}
	if o.Logging != nil {
		l := RawLoggingConfig{}
		if c.Logging != nil {
			l = *c.Logging
		}
		if o.Logging.File != nil {
			l.File = o.Logging.File
		}
		if o.Logging.Level != nil {
			l.Level = o.Logging.Level
		}
		if o.Logging.MaxSizeMB != nil {
			l.MaxSizeMB = o.Logging.MaxSizeMB
		}
		if o.Logging.MaxBackups != nil {
			l.MaxBackups = o.Logging.MaxBackups
		}
		if o.Logging.MaxAgeDays != nil {
			l.MaxAgeDays = o.Logging.MaxAgeDays
		}
		out.Logging = &l
	}
	out.UI = c.UI.merge(o.UI)
	out.Messages = c.Messages.merge(o.Messages)

	return out
}
