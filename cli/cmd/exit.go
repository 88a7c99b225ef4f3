package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/render"
	"github.com/noob000007/remote-conda-decorator/remote"
)

// Exit codes of commands running a remote call.
const (
	exitSuccess        = 0
	exitRemoteError    = 1
	exitTransportError = 2
	exitUsage          = 3
)

// exitCodeFor maps a call error to the process exit code.
func exitCodeFor(err error) int {
	var remoteErr *remote.RemoteError
	var transportErr *remote.TransportError
	var encodeErr *remote.EncodeError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &remoteErr):
		return exitRemoteError
	case errors.As(err, &transportErr):
		return exitTransportError
	case errors.As(err, &encodeErr):
		return exitUsage
	default:
		return exitTransportError
	}
}

// reportCallError prints err to w and returns the matching cli exit error.
// Remote failures get the traceback banner; transport failures the
// captured stderr tail.
func reportCallError(w io.Writer, err error, noColor bool) error {
	code := exitCodeFor(err)

	var remoteErr *remote.RemoteError
	var transportErr *remote.TransportError
	switch {
	case errors.As(err, &remoteErr):
		render.RemoteErrorBanner(w, remoteErr, noColor)
	case errors.As(err, &transportErr):
		render.TransportErrorLine(w, transportErr, noColor)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return cli.Exit("", code)
}

// usageError returns a cli exit error for bad flags or config.
func usageError(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), exitUsage)
}
