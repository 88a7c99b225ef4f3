package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestCallModel_RelaysLines(t *testing.T) {
	var m tea.Model = NewCallModel("pkg.Train", "torch", nil)

	for i := range maxLines + 3 {
		m, _ = m.Update(LineMsg{Env: "torch", Line: "epoch " + string(rune('a'+i))})
	}

	cm := m.(CallModel)
	if cm.Lines() != maxLines+3 {
		t.Errorf("Lines() = %d, want %d", cm.Lines(), maxLines+3)
	}
	view := cm.View()
	if !strings.Contains(view, "pkg.Train") || !strings.Contains(view, "torch") {
		t.Errorf("view lacks title: %q", view)
	}
	if strings.Contains(view, "epoch a") {
		t.Error("oldest line should have scrolled off")
	}
	if !strings.Contains(view, "(3 earlier lines)") {
		t.Errorf("view should count hidden lines: %q", view)
	}
}

func TestCallModel_DoneQuits(t *testing.T) {
	m := NewCallModel("f", "e", nil)

	next, cmd := m.Update(DoneMsg{Result: 4})
	if cmd == nil {
		t.Fatal("DoneMsg should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if view := next.View(); view != "" {
		t.Errorf("view after done = %q, want empty", view)
	}
}

func TestCallModel_QuitCancels(t *testing.T) {
	canceled := false
	m := NewCallModel("f", "e", func() { canceled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled {
		t.Error("quitting should cancel the call")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestRunCall(t *testing.T) {
	var out strings.Builder
	result, lines, err := RunCall(context.Background(), "f", "e",
		func(_ context.Context, relay func(env, line string)) (any, error) {
			relay("e", "one")
			relay("e", "two")
			time.Sleep(50 * time.Millisecond)
			return 4, nil
		},
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
	)
	if err != nil {
		t.Fatalf("RunCall failed: %v", err)
	}
	if result != 4 {
		t.Errorf("result = %v, want 4", result)
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}
}

func TestRunCall_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	var out strings.Builder
	_, _, err := RunCall(context.Background(), "f", "e",
		func(context.Context, func(env, line string)) (any, error) { return nil, boom },
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
	)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRenderSummary(t *testing.T) {
	got := RenderSummary(Summary{Func: "pkg.F", Env: "base", State: StateSucceeded, Duration: 1500 * time.Millisecond, Lines: 7})
	for _, want := range []string{"pkg.F", "base", StateSucceeded, "1.5s", "7"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary lacks %q:\n%s", want, got)
		}
	}
}

func TestStateStyle(t *testing.T) {
	if StateStyle(StateSucceeded).GetForeground() != successColor {
		t.Error("succeeded should use the success color")
	}
	if StateStyle(StateRemoteError).GetForeground() != errorColor {
		t.Error("remote_error should use the error color")
	}
}
