package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/noob000007/remote-conda-decorator/iox"
)

// DefaultStderrLimit bounds the captured tail of a child's stderr.
const DefaultStderrLimit = 64 * 1024

// Process abstracts the child process lifecycle for testing.
type Process interface {
	Start(ctx context.Context) error
	Stdout() io.Reader
	Wait() (*ProcessResult, error)
	Kill() error
}

// ProcessFactory creates a Process. Used for test injection.
type ProcessFactory func(config *ProcessConfig) Process

// ProcessConfig configures one child process.
type ProcessConfig struct {
	// Argv is the full command line: launcher prefix then program argv.
	Argv []string
	// Env is appended to the inherited environment; later entries win.
	Env []string
	// StderrLimit bounds the captured stderr tail. Zero means
	// DefaultStderrLimit.
	StderrLimit int
}

// ProcessResult represents the result of a child process.
type ProcessResult struct {
	// ExitCode is the process exit code, -1 if it was killed by a signal.
	ExitCode int
	// Signaled is true if the process was terminated by a signal.
	Signaled bool
	// Stderr is the captured stderr tail.
	Stderr []byte
}

// ProcessManager runs the launcher as a child process in its own process
// group, so killing it also kills what the launcher started.
type ProcessManager struct {
	config     *ProcessConfig
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	stderr     *iox.TailBuffer
	stderrDone chan struct{}
}

// NewProcessManager creates a new process manager.
func NewProcessManager(config *ProcessConfig) *ProcessManager {
	return &ProcessManager{config: config}
}

// Start starts the child. Stdout is left for the caller to stream; stderr
// is drained concurrently into a bounded buffer so a chatty child never
// blocks on a full pipe.
func (m *ProcessManager) Start(ctx context.Context) error {
	if len(m.config.Argv) == 0 {
		return errors.New("empty command line")
	}
	m.cmd = exec.CommandContext(ctx, m.config.Argv[0], m.config.Argv[1:]...)
	m.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	m.cmd.Cancel = m.Kill
	m.cmd.WaitDelay = 5 * time.Second

	if len(m.config.Env) > 0 {
		m.cmd.Env = deduplicateEnv(append(os.Environ(), m.config.Env...))
	}

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	m.stdout = stdout

	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	limit := m.config.StderrLimit
	if limit <= 0 {
		limit = DefaultStderrLimit
	}
	m.stderr = iox.NewTailBuffer(limit)

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", m.config.Argv[0], err)
	}

	m.stderrDone = make(chan struct{})
	go func() {
		defer close(m.stderrDone)
		_, _ = io.Copy(m.stderr, stderr)
	}()
	return nil
}

// Stdout returns the stdout reader. Read it to EOF before calling Wait.
func (m *ProcessManager) Stdout() io.Reader {
	return m.stdout
}

// Wait waits for the child to exit and returns the result.
// Must be called after Start and after stdout was read to EOF.
func (m *ProcessManager) Wait() (*ProcessResult, error) {
	if m.cmd == nil || m.stderrDone == nil {
		return nil, errors.New("process not started")
	}

	<-m.stderrDone
	err := m.cmd.Wait()

	result := &ProcessResult{Stderr: m.stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("process wait failed: %w", err)
		}
		result.ExitCode = -1
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				result.Signaled = true
			} else {
				result.ExitCode = status.ExitStatus()
			}
		}
	}
	return result, nil
}

// Kill terminates the child's whole process group.
func (m *ProcessManager) Kill() error {
	if m.cmd == nil || m.cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-m.cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return m.cmd.Process.Kill()
	}
	return nil
}

// deduplicateEnv keeps the last occurrence of each env var key.
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
