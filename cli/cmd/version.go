package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/render"
	"github.com/noob000007/remote-conda-decorator/runner"
	"github.com/noob000007/remote-conda-decorator/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version          string `json:"version" yaml:"version"`
	Commit           string `json:"commit" yaml:"commit"`
	Protocol         int    `json:"protocol" yaml:"protocol"`
	GoVersion        string `json:"go_version" yaml:"go_version"`
	TemplateChecksum string `json:"template_checksum" yaml:"template_checksum"`
}

// VersionCommand returns the version command.
// It must not start a child process.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return usageError("%v", err)
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return usageError("--tui is not supported for version command")
		}

		return r.Render(newVersionResponse(commit))
	}
}

func newVersionResponse(commit string) VersionResponse {
	return VersionResponse{
		Version:          types.Version,
		Commit:           commit,
		Protocol:         types.ProtocolVersion,
		GoVersion:        runtime.Version(),
		TemplateChecksum: runner.TemplateChecksum(),
	}
}
