package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/noob000007/remote-conda-decorator/runner"
)

// DefaultFile is the config file looked up in the working directory when
// --config is not given.
const DefaultFile = "condacall.yaml"

// Program kinds.
const (
	ProgramSelf      = "self"
	ProgramGenerated = "generated"
)

// Config represents a condacall.yaml configuration file.
// All values are optional and act as defaults for condacall flags.
// CLI flags always override config values.
type Config struct {
	Env      string        `yaml:"env"`
	Launcher []string      `yaml:"launcher"`
	Store    StoreConfig   `yaml:"store"`
	Program  ProgramConfig `yaml:"program"`
	Timeout  Duration      `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	NoColor  bool          `yaml:"no_color"`
}

// StoreConfig holds artifact store defaults from the config file.
type StoreConfig struct {
	// Root defaults to shm.DefaultRoot().
	Root string `yaml:"root"`
}

// ProgramConfig selects how the runner program is started in the target
// environment.
type ProgramConfig struct {
	// Kind is "self" (default) or "generated".
	Kind string `yaml:"kind"`
	// Executable overrides the re-executed binary for kind "self".
	Executable string `yaml:"executable"`
	// Go is the go binary inside the target environment for kind
	// "generated".
	Go string `yaml:"go"`
	// Imports are the packages registering entry points.
	Imports []string `yaml:"imports"`
	// Modules are extra go.mod requirements.
	Modules []runner.Module `yaml:"modules"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values that cannot be checked by the YAML decoder.
func (c *Config) Validate() error {
	switch c.Program.Kind {
	case "", ProgramSelf:
	case ProgramGenerated:
		if len(c.Program.Imports) == 0 {
			return errors.New("program.imports is required for a generated program")
		}
	default:
		return fmt.Errorf("unknown program.kind %q (want %q or %q)", c.Program.Kind, ProgramSelf, ProgramGenerated)
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout.Duration)
	}
	for i, m := range c.Program.Modules {
		if m.Path == "" {
			return fmt.Errorf("program.modules[%d]: path is required", i)
		}
	}
	return nil
}

// RunnerProgram builds the runner program described by the config.
func (c *Config) RunnerProgram() (runner.Program, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Program.Kind == ProgramGenerated {
		return runner.GeneratedProgram{
			GoBinary: c.Program.Go,
			Imports:  c.Program.Imports,
			Modules:  c.Program.Modules,
		}, nil
	}
	return runner.SelfProgram{Executable: c.Program.Executable}, nil
}
