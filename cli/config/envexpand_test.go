package config

import (
	"strings"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CONDA_ENV", "scanpy")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "no references here", "no references here"},
		{"set", "env: ${CONDA_ENV}", "env: scanpy"},
		{"unset", "env: ${UNSET_VAR_12345}", "env: "},
		{"default when unset", "env: ${UNSET_VAR_12345:-base}", "env: base"},
		{"default when empty", "env: ${EMPTY_VAR:-base}", "env: base"},
		{"default ignored when set", "env: ${CONDA_ENV:-base}", "env: scanpy"},
		{"required and set", "env: ${CONDA_ENV:?missing}", "env: scanpy"},
		{"escaped dollar", "cost: $$5 for ${CONDA_ENV}", "cost: $5 for scanpy"},
		{"escaped reference", "literal: $${CONDA_ENV}", "literal: ${CONDA_ENV}"},
		{"bare dollar kept", "price: $5", "price: $5"},
		{"several", "${CONDA_ENV}/${UNSET_VAR_12345:-x}", "scanpy/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnv(tt.input)
			if err != nil {
				t.Fatalf("ExpandEnv(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_Required(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		input   string
		wantMsg string
	}{
		{"env: ${UNSET_VAR_12345:?set the target environment}", "set the target environment"},
		{"env: ${EMPTY_VAR:?}", "not set"},
	}
	for _, tt := range tests {
		_, err := ExpandEnv(tt.input)
		if err == nil {
			t.Errorf("ExpandEnv(%q): expected error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("error %q does not contain %q", err, tt.wantMsg)
		}
	}
}

func TestExpandEnv_MultilineYAML(t *testing.T) {
	t.Setenv("CONDA_ENV", "scanpy")
	t.Setenv("RUNNER_GO", "/opt/go/bin/go")

	input := `env: ${CONDA_ENV}
program:
  kind: generated
  go: ${RUNNER_GO}`

	got, err := ExpandEnv(input)
	if err != nil {
		t.Fatal(err)
	}
	want := `env: scanpy
program:
  kind: generated
  go: /opt/go/bin/go`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
