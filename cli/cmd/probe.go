package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/builtin"
	"github.com/noob000007/remote-conda-decorator/cli/render"
)

// ProbeCommand returns the probe command.
// It runs builtin.EnvInfo in the target environment, which checks the
// launcher, the runner program and the artifact store end to end.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:   "probe",
		Usage:  "Check that calls into the target environment work",
		Flags:  CallFlags(),
		Action: probeAction,
	}
}

func probeAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return usageError("%v", err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runCall(ctx, c, s, r, builtin.EnvInfoName, nil)
}
