// Package main provides a standalone runner program.
//
// Install it inside a target environment to serve the builtin entry
// points without the full CLI:
//
//	condacall-runner <input-artifact-path>
//
// Point program.executable at it; the runner-mode argument added by the
// caller is accepted too.
//
// Exit codes:
//   - 0: outcome delivered (the call itself may have failed)
//   - 1: the outcome could not be written
//   - 2: usage error
package main

import (
	"os"

	_ "github.com/noob000007/remote-conda-decorator/builtin"
	"github.com/noob000007/remote-conda-decorator/runner"
)

func main() {
	runner.Init()
	os.Exit(runner.Main(os.Args[1:], os.Stdout, os.Stderr))
}
