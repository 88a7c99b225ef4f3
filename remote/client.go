// Package remote runs registered entry points inside another named
// environment, one child process per call.
//
// A call writes the encoded request to the artifact store, launches the
// runner program through the environment launcher, streams the child's
// stdout until the marker line names the result artifact, and decodes the
// outcome. Every artifact the call created is removed before it returns.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/noob000007/remote-conda-decorator/ipc"
	"github.com/noob000007/remote-conda-decorator/largeobj"
	"github.com/noob000007/remote-conda-decorator/log"
	"github.com/noob000007/remote-conda-decorator/metrics"
	"github.com/noob000007/remote-conda-decorator/registry"
	"github.com/noob000007/remote-conda-decorator/runner"
	"github.com/noob000007/remote-conda-decorator/shm"
	"github.com/noob000007/remote-conda-decorator/types"
)

// Config configures a Client.
type Config struct {
	// Env is the target environment name. Required.
	Env string
	// Launcher is the command prefix running a program inside Env.
	// Arguments may contain {env}. Default DefaultLauncher.
	Launcher []string
	// Store is the artifact store. Default: a filesystem store at
	// shm.DefaultRoot().
	Store *shm.Store
	// Program produces the runner argv. Default runner.SelfProgram{}.
	Program runner.Program
	// Registry resolves function values to names. Default registry.Default.
	Registry *registry.Registry
	// Timeout kills the child when exceeded. Zero means no timeout: the call
	// blocks for as long as the child lives.
	Timeout time.Duration
	// Relay receives every child stdout line that is not the result marker.
	// Default StdoutRelay.
	Relay func(env, line string)
	// ExtraEnv is added to the child's environment.
	ExtraEnv []string
	// StderrLimit bounds the captured stderr tail. Default
	// DefaultStderrLimit.
	StderrLimit int
	// Logger defaults to error level on stderr, so a remote failure's
	// traceback is printed before the call returns its RemoteError. Use
	// log.NewNop() to silence it.
	Logger *log.Logger
	// Collector is optional; all Collector methods are nil-safe.
	Collector *metrics.Collector
	// ProcessFactory overrides child creation (for testing).
	ProcessFactory ProcessFactory
}

// Client runs calls in one target environment. Safe for concurrent use:
// concurrent calls share nothing but the store, and their artifact names
// never collide.
type Client struct {
	config Config
}

// NewClient validates cfg and fills in defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Env == "" {
		return nil, errors.New("remote: environment name must be non-empty")
	}
	if len(cfg.Launcher) == 0 {
		cfg.Launcher = DefaultLauncher
	}
	cfg.Launcher = slices.Clone(cfg.Launcher)
	if cfg.Store == nil {
		store, err := shm.Open("")
		if err != nil {
			return nil, fmt.Errorf("remote: open artifact store: %w", err)
		}
		cfg.Store = store
	}
	if cfg.Program == nil {
		cfg.Program = runner.SelfProgram{}
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.Default
	}
	if cfg.Relay == nil {
		cfg.Relay = StdoutRelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.WithLevel(zapcore.ErrorLevel))
	}
	if cfg.ProcessFactory == nil {
		cfg.ProcessFactory = func(pc *ProcessConfig) Process { return NewProcessManager(pc) }
	}
	return &Client{config: cfg}, nil
}

// Env returns the target environment name.
func (c *Client) Env() string { return c.config.Env }

// Store returns the artifact store.
func (c *Client) Store() *shm.Store { return c.config.Store }

// Collector returns the metrics collector, possibly nil.
func (c *Client) Collector() *metrics.Collector { return c.config.Collector }

// Invoke runs fn (a function value or a registered name) with args in the
// target environment and returns the encoded result. A trailing
// registry.Kwargs argument is sent as keyword arguments. A large-object
// result is resolved: the returned bytes encode its value.
//
// Errors are *EncodeError, *TransportError or *RemoteError.
func (c *Client) Invoke(ctx context.Context, fn any, args ...any) ([]byte, error) {
	name, err := c.config.Registry.Resolve(fn)
	if err != nil {
		return nil, &EncodeError{Func: fmt.Sprint(fn), Index: -1, Err: err}
	}

	call := &call{
		client: c,
		meta:   types.CallMeta{CallID: shm.NewToken(), Env: c.config.Env, Func: name},
	}
	call.logger = c.config.Logger.ForCall(&call.meta)
	call.inputKey, call.resultKey = shm.CallKeys(call.meta.CallID)

	c.config.Collector.IncCallStarted()
	defer call.cleanup()

	raw, err := call.run(ctx, args)
	if err == nil {
		c.config.Collector.IncCallSucceeded()
	}
	return raw, err
}

// Call runs fn once and decodes the result into R.
func Call[R any](ctx context.Context, c *Client, fn any, args ...any) (R, error) {
	var out R
	raw, err := c.Invoke(ctx, fn, args...)
	if err != nil {
		return out, err
	}
	if err := ipc.DecodeValue(raw, &out); err != nil {
		name, _ := c.config.Registry.Resolve(fn)
		return out, &TransportError{
			Kind:     TransportResultUnreadable,
			Func:     name,
			Env:      c.config.Env,
			ExitCode: 0,
			Msg:      "result does not decode into the requested type",
			Err:      err,
		}
	}
	return out, nil
}

// Wrap returns a function running fn in c's environment on every call.
// The wrapper blocks for the full round trip.
func Wrap[R any](c *Client, fn any) func(ctx context.Context, args ...any) (R, error) {
	return func(ctx context.Context, args ...any) (R, error) {
		return Call[R](ctx, c, fn, args...)
	}
}

// call holds the state of one in-flight invocation.
type call struct {
	client    *Client
	meta      types.CallMeta
	logger    *log.Logger
	inputKey  string
	resultKey string

	externalized   []largeobj.Externalizer
	programCleanup func()
}

func (k *call) run(ctx context.Context, args []any) ([]byte, error) {
	cfg := &k.client.config
	store := cfg.Store

	env, err := k.buildEnvelope(ctx, args)
	if err != nil {
		return nil, err
	}
	artifact, err := ipc.EncodeCall(env)
	if err != nil {
		return nil, &EncodeError{Func: k.meta.Func, Index: -1, Err: err}
	}
	if err := store.Put(ctx, k.inputKey, artifact); err != nil {
		cfg.Collector.IncArtifactWriteFailure()
		return nil, k.transportErr(TransportSpawn, -1, nil, "cannot write input artifact", err)
	}
	cfg.Collector.IncArtifactWriteSuccess()

	inputPath := store.Path(k.inputKey)
	resultPath := store.Path(k.resultKey)

	program, cleanup, err := cfg.Program.Command(ctx, store, inputPath)
	if err != nil {
		return nil, k.transportErr(TransportSpawn, -1, nil, "cannot prepare runner program", err)
	}
	k.programCleanup = cleanup

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	argv := BuildCommand(cfg.Launcher, cfg.Env, program)
	k.logger.Debug("spawning", map[string]any{
		"argv":        argv,
		"input_path":  inputPath,
		"input_bytes": len(artifact),
	})

	proc := cfg.ProcessFactory(&ProcessConfig{
		Argv:        argv,
		Env:         cfg.ExtraEnv,
		StderrLimit: cfg.StderrLimit,
	})
	started := time.Now()
	if err := proc.Start(ctx); err != nil {
		cfg.Collector.IncSpawnFailure()
		return nil, k.transportErr(TransportSpawn, -1, nil, "cannot start environment launcher", err)
	}
	cfg.Collector.IncSpawnSuccess()

	// Stdout must be read to EOF before Wait.
	sawMarker, scanErr := k.stream(proc, resultPath)
	res, waitErr := proc.Wait()

	k.logger.Debug("child exited", map[string]any{
		"duration_ms": time.Since(started).Milliseconds(),
		"marker":      sawMarker,
	})

	switch {
	case ctx.Err() != nil:
		return nil, k.transportErr(TransportCanceled, -1, res, "call canceled, child killed", ctx.Err())
	case waitErr != nil:
		return nil, k.transportErr(TransportExit, -1, nil, "waiting for child failed", waitErr)
	case res.Signaled:
		return nil, k.transportErr(TransportExit, -1, res, "child killed by a signal", nil)
	case res.ExitCode != 0:
		return nil, k.transportErr(TransportExit, res.ExitCode, res,
			fmt.Sprintf("child exited with code %d", res.ExitCode), nil)
	case !sawMarker:
		return nil, k.transportErr(TransportNoResultPath, 0, res, "no result path received", scanErr)
	}

	return k.readOutcome(ctx, res)
}

// buildEnvelope externalizes large objects and encodes every argument.
func (k *call) buildEnvelope(ctx context.Context, args []any) (*types.CallEnvelope, error) {
	cfg := &k.client.config

	var kwargs registry.Kwargs
	if n := len(args); n > 0 {
		if kw, ok := args[n-1].(registry.Kwargs); ok {
			kwargs, args = kw, args[:n-1]
		}
	}

	encoded := make([][]byte, len(args))
	for i, arg := range args {
		if ext, ok := largeobj.AsExternalizer(arg); ok {
			// Registered before Externalize so a partial write is cleaned up.
			k.externalized = append(k.externalized, ext)
			if err := ext.Externalize(ctx, cfg.Store); err != nil {
				return nil, &EncodeError{Func: k.meta.Func, Index: i, Err: err}
			}
			cfg.Collector.IncLargeObject()
		}
		raw, err := ipc.EncodeValue(arg)
		if err != nil {
			return nil, &EncodeError{Func: k.meta.Func, Index: i, Err: err}
		}
		encoded[i] = raw
	}

	encodedKw := make(map[string][]byte, len(kwargs))
	for key, v := range kwargs {
		raw, err := ipc.EncodeValue(v)
		if err != nil {
			return nil, &EncodeError{Func: k.meta.Func, Index: -1, Key: key, Err: err}
		}
		encodedKw[key] = raw
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return types.NewCallEnvelope(k.meta.CallID, k.meta.Func, encoded, encodedKw, cwd), nil
}

// readOutcome decodes the result artifact named by the marker.
func (k *call) readOutcome(ctx context.Context, res *ProcessResult) ([]byte, error) {
	cfg := &k.client.config

	data, err := cfg.Store.Get(ctx, k.resultKey)
	if err != nil {
		if shm.IsNotFound(err) {
			return nil, k.transportErr(TransportResultMissing, 0, res, "result file missing", err)
		}
		return nil, k.transportErr(TransportResultUnreadable, 0, res, "cannot read result file", err)
	}

	outcome, err := ipc.DecodeOutcome(data)
	if err != nil {
		cfg.Collector.IncDecodeErrors()
		msg := "cannot decode result file"
		if ipc.IsFatalCodecError(err) {
			msg = "result file truncated or not a result artifact"
		}
		return nil, k.transportErr(TransportResultUnreadable, 0, res, msg, err)
	}
	if outcome.CallID != k.meta.CallID {
		cfg.Collector.IncDecodeErrors()
		return nil, k.transportErr(TransportResultUnreadable, 0, res,
			fmt.Sprintf("result belongs to call %q", outcome.CallID), nil)
	}

	if outcome.Failed() {
		cfg.Collector.IncCallRemoteFailed()
		k.logger.Error("remote call failed", map[string]any{
			"error_type": *outcome.Error,
			"error_msg":  outcome.ErrorMsg,
			"traceback":  outcome.Traceback,
		})
		return nil, &RemoteError{
			Func:      k.meta.Func,
			Env:       k.meta.Env,
			Type:      *outcome.Error,
			Message:   outcome.ErrorMsg,
			Traceback: outcome.Traceback,
		}
	}

	ref, isRef := largeobj.ParseReference(outcome.Result)
	if !isRef {
		return outcome.Result, nil
	}
	raw, err := largeobj.Load(ctx, cfg.Store, ref)
	if rmErr := largeobj.Remove(ctx, cfg.Store, ref); rmErr != nil {
		k.cleanupFailed("large-object result", rmErr)
	}
	if err != nil {
		return nil, k.transportErr(TransportResultUnreadable, 0, res, "cannot load large-object result", err)
	}
	return raw, nil
}

func (k *call) transportErr(kind TransportKind, exitCode int, res *ProcessResult, msg string, err error) error {
	te := &TransportError{
		Kind:     kind,
		Func:     k.meta.Func,
		Env:      k.meta.Env,
		ExitCode: exitCode,
		Msg:      msg,
		Err:      err,
	}
	if res != nil {
		te.Stderr = string(res.Stderr)
	}
	k.client.config.Collector.IncCallTransportFailed(string(kind))

	fields := map[string]any{
		"kind":      string(kind),
		"exit_code": exitCode,
		"message":   msg,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	k.logger.Error("call transport failed", fields)
	return te
}

// cleanup removes every artifact the call created. Errors are logged and
// counted, never returned.
func (k *call) cleanup() {
	cfg := &k.client.config
	// Cleanup must run even when the caller's context is already done.
	ctx := context.Background()

	for _, key := range []string{k.inputKey, k.resultKey} {
		if err := cfg.Store.Remove(ctx, key); err != nil {
			k.cleanupFailed(key, err)
		}
	}
	if k.programCleanup != nil {
		k.programCleanup()
	}
	for _, ext := range k.externalized {
		ext.Cleanup(ctx)
	}
}

func (k *call) cleanupFailed(what string, err error) {
	k.client.config.Collector.IncCleanupFailure()
	k.logger.Debug("cleanup failed", map[string]any{
		"artifact": what,
		"error":    err.Error(),
	})
}
