package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/noob000007/remote-conda-decorator/remote"
)

func TestRelay_NoColor(t *testing.T) {
	var buf bytes.Buffer
	relay := Relay(&buf, true)

	relay("scanpy", "loading data")
	relay("scanpy", "RESULT_PATH:/not/ours")

	want := "[scanpy] loading data\n[scanpy] RESULT_PATH:/not/ours\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestRemoteErrorBanner(t *testing.T) {
	var buf bytes.Buffer
	RemoteErrorBanner(&buf, &remote.RemoteError{
		Func:      "pkg.Fit",
		Env:       "torch",
		Type:      "*errors.errorString",
		Message:   "bad",
		Traceback: "*errors.errorString: bad\n",
	}, true)

	got := buf.String()
	for _, want := range []string{`pkg.Fit failed in env "torch"`, "*errors.errorString: bad", "remote traceback:"} {
		if !strings.Contains(got, want) {
			t.Errorf("banner lacks %q:\n%s", want, got)
		}
	}
}

func TestTransportErrorLine(t *testing.T) {
	var buf bytes.Buffer
	TransportErrorLine(&buf, &remote.TransportError{
		Kind:   remote.TransportExit,
		Func:   "pkg.Fit",
		Env:    "missing",
		Msg:    "child exited with code 1",
		Stderr: "EnvironmentLocationNotFound: Not a conda environment\n",
		Err:    errors.New("exit status 1"),
	}, true)

	got := buf.String()
	if !strings.HasPrefix(got, "transport error (exit): pkg.Fit") {
		t.Errorf("unexpected head: %q", got)
	}
	if !strings.Contains(got, "EnvironmentLocationNotFound") {
		t.Errorf("stderr tail missing: %q", got)
	}
}
