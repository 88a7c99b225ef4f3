package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	exitErrHandler(nil, nil)
}

func TestReportExit(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"success no message", cli.Exit("", 0), 0, ""},
		{"remote error banner already printed", cli.Exit("", 1), 1, ""},
		{"transport error", cli.Exit("", 2), 2, ""},
		{"usage with message", cli.Exit("no target environment", 3), 3, "no target environment\n"},
		{"wrapped exit coder", errors.Join(errors.New("context"), cli.Exit("inner error", 42)), 42, "inner error\n"},
		{"flag error", errors.New("flag provided but not defined: -bogus"), 3, "Error: flag provided but not defined: -bogus\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := reportExit(&buf, tt.err)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}
