// Package main provides the condacall CLI entrypoint.
//
// Usage:
//
//	condacall <command> [options]
//
// The binary is also its own runner program: started with
// __condacall_runner__ as the first argument it serves one call and exits.
//
// Exit codes for call and probe:
//   - 0: success
//   - 1: remote application error
//   - 2: transport error
//   - 3: usage or config error
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/cmd"
	"github.com/noob000007/remote-conda-decorator/runner"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// exitUsage is returned for errors urfave/cli raises itself, such as an
// unknown flag or a missing required one.
const exitUsage = 3

func main() {
	runner.Init()

	app := cmd.NewApp(commit)
	app.ExitErrHandler = exitErrHandler

	if err := app.Run(os.Args); err != nil {
		os.Exit(reportExit(os.Stderr, err))
	}
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit prints err when it carries a message and returns the exit
// code. Call errors were already printed by the command; their exit
// errors have an empty message.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}

	code := exitCoder.ExitCode()
	if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
		fmt.Fprintln(w, msg)
	}
	return code
}
