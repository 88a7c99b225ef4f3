package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/config"
	"github.com/noob000007/remote-conda-decorator/cli/render"
	"github.com/noob000007/remote-conda-decorator/shm"
)

// defaultSweepAge leaves artifacts of calls that may still be running.
const defaultSweepAge = time.Hour

// SweepResponse is the response for the sweep command.
type SweepResponse struct {
	Root    string   `json:"root" yaml:"root"`
	DryRun  bool     `json:"dry_run" yaml:"dry_run"`
	Removed []string `json:"removed" yaml:"removed"`
	Failed  []string `json:"failed" yaml:"failed"`
}

// SweepCommand returns the sweep command.
// It removes artifacts left behind by callers that were killed mid-call.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove stale call artifacts from the store",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			RootFlag,
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Only remove artifacts older than this",
				Value: defaultSweepAge,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List what would be removed without removing it",
			},
		),
		Action: sweepAction,
	}
}

func sweepAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}
	if c.Bool("tui") {
		return usageError("--tui is not supported for sweep command")
	}
	if c.Duration("older-than") < 0 {
		return usageError("--older-than must not be negative")
	}

	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return usageError("%v", err)
	}
	root := cfg.Store.Root
	if v := c.String("root"); v != "" {
		root = v
	}

	store, err := shm.Open(root)
	if err != nil {
		return cli.Exit(err.Error(), exitTransportError)
	}
	res, err := store.Sweep(context.Background(), c.Duration("older-than"), c.Bool("dry-run"))
	if err != nil {
		return cli.Exit(err.Error(), exitTransportError)
	}

	resp := SweepResponse{
		Root:    store.Root(),
		DryRun:  c.Bool("dry-run"),
		Removed: nonNil(res.Removed),
		Failed:  nonNil(res.Failed),
	}
	if err := r.Render(resp); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return cli.Exit("", exitTransportError)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
