package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/render"
	"github.com/noob000007/remote-conda-decorator/cli/tui"
	"github.com/noob000007/remote-conda-decorator/registry"
	"github.com/noob000007/remote-conda-decorator/remote"
)

// CallCommand returns the call command.
// This is the only command that runs an arbitrary entry point.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Run a registered entry point in the target environment",
		ArgsUsage: " ",
		Flags: append(CallFlags(),
			&cli.StringFlag{
				Name:     "func",
				Usage:    "Registered entry point name",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "arg",
				Usage: "Positional argument as JSON (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "kwarg",
				Usage: "Keyword argument as key=JSON (repeatable)",
			},
		),
		Action: callAction,
	}
}

func callAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return usageError("%v", err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}
	args, err := parseCallArgs(c.StringSlice("arg"), c.StringSlice("kwarg"))
	if err != nil {
		return usageError("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runCall(ctx, c, s, r, c.String("func"), args)
}

// runCall performs one call, with or without the TUI, and renders the
// result. Child output goes to stderr so stdout carries only the result.
func runCall(ctx context.Context, c *cli.Context, s *settings, r *render.Renderer, fn string, args []any) error {
	noColor := s.noColor || r.NoColor()

	// The relay target is chosen below, before the call starts.
	var sink func(env, line string)
	client, collector, err := s.newClient(func(env, line string) { sink(env, line) })
	if err != nil {
		return usageError("%v", err)
	}

	started := time.Now()
	var result any
	if c.Bool("tui") {
		var lines int
		result, lines, err = tui.RunCall(ctx, fn, s.env,
			func(ctx context.Context, relay func(env, line string)) (any, error) {
				sink = relay
				return remote.Call[any](ctx, client, fn, args...)
			},
			tea.WithOutput(s.stderr),
		)
		fmt.Fprintln(s.stderr, tui.RenderSummary(tui.Summary{
			Func:     fn,
			Env:      s.env,
			State:    stateOf(err),
			Duration: time.Since(started),
			Lines:    lines,
		}))
	} else {
		sink = render.Relay(s.stderr, noColor)
		result, err = remote.Call[any](ctx, client, fn, args...)
	}

	if merr := s.writeMetrics(collector); merr != nil {
		fmt.Fprintf(s.stderr, "Warning: %v\n", merr)
	}
	if err != nil {
		return reportCallError(s.stderr, err, noColor)
	}
	return r.Render(result)
}

// stateOf names the final call state for the TUI summary.
func stateOf(err error) string {
	switch exitCodeFor(err) {
	case exitSuccess:
		return tui.StateSucceeded
	case exitRemoteError:
		return tui.StateRemoteError
	default:
		if remote.IsTransportKind(err, remote.TransportCanceled) {
			return tui.StateCanceled
		}
		return tui.StateTransportError
	}
}

// parseCallArgs decodes JSON positional arguments and key=JSON keyword
// arguments. Keyword arguments are appended as a trailing registry.Kwargs.
func parseCallArgs(rawArgs, rawKwargs []string) ([]any, error) {
	args := make([]any, 0, len(rawArgs)+1)
	for i, raw := range rawArgs {
		v, err := parseJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("--arg %d: %w", i, err)
		}
		args = append(args, v)
	}

	if len(rawKwargs) == 0 {
		return args, nil
	}
	kwargs := make(registry.Kwargs, len(rawKwargs))
	for _, raw := range rawKwargs {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--kwarg %q: want key=JSON", raw)
		}
		if _, dup := kwargs[key]; dup {
			return nil, fmt.Errorf("--kwarg %q given twice", key)
		}
		v, err := parseJSONValue(value)
		if err != nil {
			return nil, fmt.Errorf("--kwarg %s: %w", key, err)
		}
		kwargs[key] = v
	}
	return append(args, kwargs), nil
}

// parseJSONValue decodes one JSON document. Integral numbers become int64
// so they decode into integer parameters on the remote side.
func parseJSONValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON %q: %w", raw, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON %q: trailing data", raw)
	}
	return convertNumbers(v), nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = convertNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = convertNumbers(t[k])
		}
		return t
	default:
		return v
	}
}
