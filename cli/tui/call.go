package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Call states.
const (
	StateRunning        = "running"
	StateSucceeded      = "succeeded"
	StateRemoteError    = "remote_error"
	StateTransportError = "transport_error"
	StateCanceled       = "canceled"
)

// maxLines is the number of relayed lines kept on screen.
const maxLines = 12

// RunFunc performs the call, sending child output to relay.
type RunFunc func(ctx context.Context, relay func(env, line string)) (any, error)

// LineMsg carries one relayed child output line.
type LineMsg struct {
	Env  string
	Line string
}

// DoneMsg reports the end of the call.
type DoneMsg struct {
	Result any
	Err    error
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

// CallModel is a Bubble Tea model showing one call in progress.
type CallModel struct {
	fn      string
	env     string
	spinner spinner.Model
	started time.Time
	lines   []string
	total   int

	cancel   context.CancelFunc
	done     bool
	canceled bool
	result   any
	err      error
}

// NewCallModel creates a model for a call of fn in env. cancel is invoked
// when the user quits before the call ends.
func NewCallModel(fn, env string, cancel context.CancelFunc) CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return CallModel{
		fn:      fn,
		env:     env,
		spinner: s,
		started: time.Now(),
		cancel:  cancel,
	}
}

// Init implements tea.Model.
func (m CallModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.done {
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case LineMsg:
		m.total++
		m.lines = append(m.lines, msg.Line)
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m CallModel) View() string {
	if m.done || m.canceled {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s\n\n",
		m.spinner.View(),
		TitleStyle.Render(m.fn),
		LineStyle.Render("in"),
		EnvStyle.Render(m.env))

	for _, line := range m.lines {
		b.WriteString(EnvStyle.Render("["+m.env+"]"))
		b.WriteString(" ")
		b.WriteString(LineStyle.Render(line))
		b.WriteString("\n")
	}
	if hidden := m.total - len(m.lines); hidden > 0 {
		b.WriteString(LineStyle.Render(fmt.Sprintf("(%d earlier lines)", hidden)))
		b.WriteString("\n")
	}

	elapsed := time.Since(m.started).Truncate(100 * time.Millisecond)
	b.WriteString(HelpStyle.Render(fmt.Sprintf("%s elapsed · %d lines · press q to cancel", elapsed, m.total)))
	return b.String()
}

// Lines returns the number of relayed lines received.
func (m CallModel) Lines() int { return m.total }

// RunCall runs fn under a live progress view and returns its outcome.
// Quitting the view cancels the call's context and waits for it to end.
func RunCall(ctx context.Context, fn, env string, run RunFunc, opts ...tea.ProgramOption) (any, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewCallModel(fn, env, cancel)
	p := tea.NewProgram(model, opts...)

	done := make(chan DoneMsg, 1)
	go func() {
		result, err := run(ctx, func(env, line string) {
			p.Send(LineMsg{Env: env, Line: line})
		})
		msg := DoneMsg{Result: result, Err: err}
		done <- msg
		p.Send(msg)
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, 0, fmt.Errorf("tui: %w", err)
	}

	msg := <-done
	lines := 0
	if fm, ok := final.(CallModel); ok {
		lines = fm.Lines()
	}
	return msg.Result, lines, msg.Err
}
