package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/noob000007/remote-conda-decorator/cli/config"
	"github.com/noob000007/remote-conda-decorator/log"
	"github.com/noob000007/remote-conda-decorator/metrics"
	"github.com/noob000007/remote-conda-decorator/remote"
	"github.com/noob000007/remote-conda-decorator/shm"
)

// defaultLogLevel keeps library chatter off the terminal unless asked for.
const defaultLogLevel = "warn"

// settings is the merged view of config file and flags.
// CLI flags always override config values.
type settings struct {
	cfg      *config.Config
	env      string
	launcher []string
	root     string
	timeout  time.Duration
	logLevel string
	noColor  bool
	metrics  string
	stderr   io.Writer
}

func loadSettings(c *cli.Context) (*settings, error) {
	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return nil, err
	}

	s := &settings{
		cfg:      cfg,
		env:      cfg.Env,
		launcher: cfg.Launcher,
		root:     cfg.Store.Root,
		timeout:  cfg.Timeout.Duration,
		logLevel: cfg.LogLevel,
		noColor:  cfg.NoColor || c.Bool("no-color"),
		metrics:  c.String("metrics-textfile"),
		stderr:   c.App.ErrWriter,
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if v := c.String("env"); v != "" {
		s.env = v
	}
	if v := c.String("root"); v != "" {
		s.root = v
	}
	if c.IsSet("timeout") {
		s.timeout = c.Duration("timeout")
	}
	if v := c.String("log-level"); v != "" {
		s.logLevel = v
	}
	if s.logLevel == "" {
		s.logLevel = defaultLogLevel
	}

	if s.env == "" {
		return nil, fmt.Errorf("no target environment: pass --env or set env in %s", config.DefaultFile)
	}
	if s.timeout < 0 {
		return nil, fmt.Errorf("--timeout must not be negative")
	}
	return s, nil
}

func (s *settings) logger() (*log.Logger, error) {
	level, err := log.ParseLevel(s.logLevel)
	if err != nil {
		return nil, err
	}
	return log.New(log.WithWriter(s.stderr), log.WithLevel(level)), nil
}

// newClient builds a client sending child output to relay.
func (s *settings) newClient(relay func(env, line string)) (*remote.Client, *metrics.Collector, error) {
	logger, err := s.logger()
	if err != nil {
		return nil, nil, err
	}
	program, err := s.cfg.RunnerProgram()
	if err != nil {
		return nil, nil, err
	}
	store, err := shm.Open(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact store: %w", err)
	}

	launcher := s.launcher
	if len(launcher) == 0 {
		launcher = remote.DefaultLauncher
	}
	collector := metrics.NewCollector(s.env, strings.Join(launcher, " "), "fs")

	client, err := remote.NewClient(remote.Config{
		Env:       s.env,
		Launcher:  launcher,
		Store:     store,
		Program:   program,
		Timeout:   s.timeout,
		Relay:     relay,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, collector, nil
}

// writeMetrics writes the collector to the configured textfile, if any.
func (s *settings) writeMetrics(collector *metrics.Collector) error {
	if s.metrics == "" {
		return nil
	}
	reg, err := metrics.NewRegistry(collector)
	if err != nil {
		return err
	}
	var g prometheus.Gatherer = reg
	if err := prometheus.WriteToTextfile(s.metrics, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
