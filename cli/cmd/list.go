package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/render"
	"github.com/noob000007/remote-conda-decorator/registry"
)

// EntryPoint is one row of the list command.
type EntryPoint struct {
	Name      string `json:"name" yaml:"name"`
	Signature string `json:"signature" yaml:"signature"`
	Args      int    `json:"args" yaml:"args"`
	Kwargs    bool   `json:"kwargs" yaml:"kwargs"`
}

// ListCommand returns the list command.
// It lists the entry points linked into this binary, which are the ones
// a self-executing runner can serve.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List registered entry points",
		Flags:  ReadOnlyFlags(),
		Action: listAction(registry.Default),
	}
}

func listAction(reg *registry.Registry) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return usageError("%v", err)
		}

		// TUI not supported for list command
		if c.Bool("tui") {
			return usageError("--tui is not supported for list command")
		}

		return r.Render(listEntryPoints(reg))
	}
}

func listEntryPoints(reg *registry.Registry) []EntryPoint {
	entries := reg.Entries()
	out := make([]EntryPoint, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryPoint{
			Name:      e.Name(),
			Signature: e.Signature(),
			Args:      e.NumArgs(),
			Kwargs:    e.AcceptsKwargs(),
		})
	}
	return out
}
