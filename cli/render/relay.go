package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/noob000007/remote-conda-decorator/cli/tui"
	"github.com/noob000007/remote-conda-decorator/remote"
)

// Relay returns a relay function writing child output lines to w as
// "[env] line". The tag is styled unless noColor is set. Safe for
// concurrent use.
func Relay(w io.Writer, noColor bool) func(env, line string) {
	var mu sync.Mutex
	return func(env, line string) {
		tag := "[" + env + "]"
		if !noColor {
			tag = tui.EnvStyle.Render(tag)
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %s\n", tag, line)
	}
}

// RemoteErrorBanner writes the remote failure with its traceback in a
// framed block.
func RemoteErrorBanner(w io.Writer, err *remote.RemoteError, noColor bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed in env %q\n%s: %s", err.Func, err.Env, err.Type, err.Message)
	if tb := strings.TrimRight(err.Traceback, "\n"); tb != "" {
		b.WriteString("\n\nremote traceback:\n")
		b.WriteString(tb)
	}

	if noColor {
		fmt.Fprintln(w, b.String())
		return
	}
	fmt.Fprintln(w, tui.BannerStyle.Render(tui.ErrorStyle.Render(b.String())))
}

// TransportErrorLine writes a one-line summary of a transport failure
// followed by the captured stderr tail.
func TransportErrorLine(w io.Writer, err *remote.TransportError, noColor bool) {
	head := fmt.Sprintf("transport error (%s): %s in env %q: %s", err.Kind, err.Func, err.Env, err.Msg)
	if err.Err != nil {
		head += ": " + err.Err.Error()
	}
	if !noColor {
		head = tui.ErrorStyle.Render(head)
	}
	fmt.Fprintln(w, head)
	if stderr := strings.TrimSpace(err.Stderr); stderr != "" {
		fmt.Fprintln(w, stderr)
	}
}
