package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/types"
)

// NewApp returns the condacall CLI application.
//
// Exit codes of call and probe:
//   - 0: success
//   - 1: remote application error
//   - 2: transport error
//   - 3: usage or config error
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "condacall",
		Usage:   "Run Go functions inside another named environment",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		// JSON arguments contain commas.
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			CallCommand(),
			ProbeCommand(),
			ListCommand(),
			SweepCommand(),
			VersionCommand(commit),
		},
	}
}
