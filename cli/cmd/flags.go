// Package cmd provides CLI commands for the condacall binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:    "no-color",
		Usage:   "Disable colored output",
		EnvVars: []string{"NO_COLOR"},
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for call.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Show a live progress view (call only)",
	}
)

// Shared call flags.
var (
	// ConfigFlag names the config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default ./condacall.yaml when present)",
		EnvVars: []string{"CONDACALL_CONFIG"},
	}

	// EnvFlag names the target environment.
	EnvFlag = &cli.StringFlag{
		Name:    "env",
		Aliases: []string{"e"},
		Usage:   "Target environment name",
		EnvVars: []string{"CONDACALL_ENV"},
	}

	// RootFlag overrides the artifact store root.
	RootFlag = &cli.StringFlag{
		Name:  "root",
		Usage: "Artifact store directory (default /dev/shm/condacall-<uid>)",
	}

	// TimeoutFlag bounds a call. Zero means no timeout.
	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Kill the child after this duration (0 = wait forever)",
	}

	// LogLevelFlag sets the stderr log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}

	// MetricsFileFlag writes call metrics in Prometheus text format.
	MetricsFileFlag = &cli.StringFlag{
		Name:  "metrics-textfile",
		Usage: "Write call metrics to this file in Prometheus text format",
	}
)

// ReadOnlyFlags returns the shared flags for commands that only print.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// CallFlags returns the flags shared by commands that run a remote call.
func CallFlags() []cli.Flag {
	return append(ReadOnlyFlags(),
		ConfigFlag,
		EnvFlag,
		RootFlag,
		TimeoutFlag,
		LogLevelFlag,
		MetricsFileFlag,
	)
}
