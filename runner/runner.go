// Package runner is the program executed inside the target environment.
//
// One invocation serves one call: read the input artifact named on the
// command line, invoke the registered entry point, write the result
// artifact and print the marker line. No state survives the invocation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/noob000007/remote-conda-decorator/ipc"
	"github.com/noob000007/remote-conda-decorator/largeobj"
	"github.com/noob000007/remote-conda-decorator/log"
	"github.com/noob000007/remote-conda-decorator/registry"
	"github.com/noob000007/remote-conda-decorator/shm"
	"github.com/noob000007/remote-conda-decorator/types"
)

// ModeArg is argv[1] of a binary re-executed as the runner program.
const ModeArg = "__condacall_runner__"

// Exit codes of the runner program.
const (
	// ExitOK means the result artifact was written and the marker printed,
	// whether the entry point succeeded or failed.
	ExitOK = 0
	// ExitWriteFailed means no outcome could be delivered.
	ExitWriteFailed = 1
	// ExitUsage means the command line was wrong.
	ExitUsage = 2
)

// LogLevelEnv names the environment variable setting the runner's stderr
// log level. Unset means warnings and errors only.
const LogLevelEnv = "CONDACALL_RUNNER_LOG"

// Init runs the runner program and exits if the process was started in
// runner mode. Call it first in main, and in TestMain of tests that spawn
// the test binary as the runner.
func Init() {
	if len(os.Args) < 2 || os.Args[1] != ModeArg {
		return
	}
	os.Exit(Main(os.Args[2:], os.Stdout, os.Stderr))
}

// Main runs one invocation and returns the process exit code.
// args holds exactly the input artifact path.
func Main(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintf(stderr, "usage: %s <input-artifact-path>\n", filepath.Base(os.Args[0]))
		return ExitUsage
	}

	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "runner: %v\n", err)
		return ExitUsage
	}

	logger := log.NewNop()
	if lvl := os.Getenv(LogLevelEnv); lvl != "" {
		if level, err := log.ParseLevel(lvl); err == nil {
			logger = log.New(log.WithWriter(stderr), log.WithLevel(level))
		}
	}

	store, err := shm.Open(filepath.Dir(inputPath))
	if err != nil {
		fmt.Fprintf(stderr, "runner: open store: %v\n", err)
		return ExitWriteFailed
	}

	resultPath, err := Execute(context.Background(), Options{
		Store:    store,
		Registry: registry.Default,
		Logger:   logger,
	}, inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "runner: %v\n", err)
		return ExitWriteFailed
	}

	if _, err := fmt.Fprintln(stdout, ipc.FormatMarker(resultPath)); err != nil {
		fmt.Fprintf(stderr, "runner: write marker: %v\n", err)
		return ExitWriteFailed
	}
	return ExitOK
}

// Options configures Execute.
type Options struct {
	Store    *shm.Store
	Registry *registry.Registry
	// Logger defaults to a no-op logger.
	Logger *log.Logger
}

// Execute performs one call: it reads the input artifact at inputPath,
// invokes the entry point and writes the result artifact. It returns the
// result path. Every failure up to and including encoding the result is
// delivered as a failure outcome; only a failure to write the outcome is
// returned as an error.
func Execute(ctx context.Context, opts Options, inputPath string) (string, error) {
	if opts.Registry == nil {
		opts.Registry = registry.Default
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}

	inputKey, err := opts.Store.Key(inputPath)
	if err != nil {
		return "", fmt.Errorf("input artifact: %w", err)
	}
	resultKey := shm.ResultKeyFor(inputKey)

	c := &call{opts: opts, inputKey: inputKey}
	outcome := c.run(ctx)

	artifact, err := ipc.EncodeOutcome(outcome)
	if err != nil {
		outcome = types.FailureOutcome(outcome.CallID, types.ErrorTypeEncode, err.Error(), "")
		if artifact, err = ipc.EncodeOutcome(outcome); err != nil {
			return "", fmt.Errorf("encode outcome: %w", err)
		}
	}
	if err := opts.Store.Put(ctx, resultKey, artifact); err != nil {
		return "", fmt.Errorf("write result artifact: %w", err)
	}
	resultPath := opts.Store.Path(resultKey)
	c.logger().Debug("result written", map[string]any{
		"result_path": resultPath,
		"failed":      outcome.Failed(),
	})
	return resultPath, nil
}

type call struct {
	opts     Options
	inputKey string
	meta     types.CallMeta
}

func (c *call) logger() *log.Logger {
	if c.meta.CallID == "" {
		return c.opts.Logger
	}
	return c.opts.Logger.ForCall(&c.meta)
}

func (c *call) fail(errType, msg, traceback string) *types.OutcomeEnvelope {
	c.logger().Warn("call failed", map[string]any{
		"error_type": errType,
		"error_msg":  msg,
	})
	return types.FailureOutcome(c.meta.CallID, errType, msg, traceback)
}

func (c *call) run(ctx context.Context) *types.OutcomeEnvelope {
	if token, ok := shm.TokenOf(c.inputKey); ok {
		c.meta.CallID = token
	}

	data, err := c.opts.Store.Get(ctx, c.inputKey)
	if err != nil {
		return c.fail(types.ErrorTypeDecode, "cannot read input artifact: "+err.Error(), "")
	}
	env, err := ipc.DecodeCall(data)
	if err != nil {
		return c.fail(types.ErrorTypeDecode, "cannot decode call envelope: "+err.Error(), "")
	}
	c.meta.CallID = env.CallID
	c.meta.Func = env.Func
	if env.Protocol != types.ProtocolVersion {
		return c.fail(types.ErrorTypeProtocol,
			fmt.Sprintf("caller speaks protocol %d, runner speaks %d", env.Protocol, types.ProtocolVersion), "")
	}

	c.enterCwd(env.Cwd)

	entry, err := c.opts.Registry.Lookup(env.Func)
	if err != nil {
		return c.fail(types.ErrorTypeUnknownFunc, err.Error(), "")
	}

	c.logger().Debug("invoking", map[string]any{
		"args":   len(env.Args),
		"kwargs": len(env.Kwargs),
	})
	result, err := entry.Invoke(ctx, env.Args, env.Kwargs, c.rehydrate)
	if err != nil {
		return c.invokeFailure(err)
	}

	if ext, ok := largeobj.AsExternalizer(result); ok {
		if err := ext.Externalize(ctx, c.opts.Store); err != nil {
			return c.fail(types.ErrorTypeLargeObject, "cannot externalize result: "+err.Error(), "")
		}
	}
	raw, err := ipc.EncodeValue(result)
	if err != nil {
		return c.fail(types.ErrorTypeEncode, "cannot encode result: "+err.Error(), "")
	}
	return types.SuccessOutcome(c.meta.CallID, raw)
}

// enterCwd makes relative paths used by the entry point resolve as in
// the caller.
func (c *call) enterCwd(cwd string) {
	if cwd == "" {
		return
	}
	if wd, err := os.Getwd(); err == nil && wd == cwd {
		return
	}
	if err := os.Chdir(cwd); err != nil {
		c.logger().Warn("cannot enter caller working directory", map[string]any{
			"cwd":   cwd,
			"error": err.Error(),
		})
	}
}

func (c *call) rehydrate(ctx context.Context, arg any) error {
	if r, ok := arg.(largeobj.Rehydrator); ok {
		return r.Rehydrate(ctx, c.opts.Store)
	}
	return nil
}

func (c *call) invokeFailure(err error) *types.OutcomeEnvelope {
	var argErr *registry.ArgumentError
	var panicErr *registry.PanicError
	switch {
	case errors.As(err, &argErr):
		return c.fail(types.ErrorTypeArgument, err.Error(), "")
	case errors.As(err, &panicErr):
		return c.fail(types.ErrorTypePanic, err.Error(), string(panicErr.Stack))
	default:
		return c.fail(registry.ErrorTypeName(err), err.Error(), traceback(err))
	}
}

// traceback renders the wrap chain of err, outermost first.
func traceback(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%s: %s\n", strings.Repeat("  ", depth), registry.ErrorTypeName(err), err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}
