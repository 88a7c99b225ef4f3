package builtin

import (
	"context"
	"os"
	"testing"

	"github.com/noob000007/remote-conda-decorator/ipc"
	"github.com/noob000007/remote-conda-decorator/registry"
	"github.com/noob000007/remote-conda-decorator/types"
)

func TestRegistered(t *testing.T) {
	for _, name := range []string{EnvInfoName, EchoName, WhichName} {
		if _, err := registry.Lookup(name); err != nil {
			t.Errorf("%s not registered: %v", name, err)
		}
	}

	name, err := registry.Resolve(EnvInfo)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if name != EnvInfoName {
		t.Errorf("Resolve(EnvInfo) = %q, want %q", name, EnvInfoName)
	}
}

func TestEnvInfo(t *testing.T) {
	t.Setenv("CONDA_DEFAULT_ENV", "scanpy")

	info := EnvInfo()
	if info.CondaEnv != "scanpy" {
		t.Errorf("CondaEnv = %q, want scanpy", info.CondaEnv)
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", info.PID, os.Getpid())
	}
	if info.Protocol != types.ProtocolVersion {
		t.Errorf("Protocol = %d", info.Protocol)
	}
}

func TestEnvInfo_Encodes(t *testing.T) {
	entry, err := registry.Lookup(EnvInfoName)
	if err != nil {
		t.Fatal(err)
	}
	result, err := entry.Invoke(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	raw, err := ipc.EncodeValue(result)
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	var got map[string]any
	if err := ipc.DecodeValue(raw, &got); err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if _, ok := got["go_version"]; !ok {
		t.Errorf("encoded info lacks go_version: %v", got)
	}
}

func TestEcho(t *testing.T) {
	entry, err := registry.Lookup(EchoName)
	if err != nil {
		t.Fatal(err)
	}
	arg, err := ipc.EncodeValue("hello")
	if err != nil {
		t.Fatal(err)
	}
	result, err := entry.Invoke(context.Background(), [][]byte{arg}, nil, nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result != "hello" {
		t.Errorf("Echo = %v, want hello", result)
	}
}

func TestWhich(t *testing.T) {
	if _, err := Which("sh"); err != nil {
		t.Skipf("sh not on PATH: %v", err)
	}
	if _, err := Which("definitely-not-a-command-12345"); err == nil {
		t.Error("expected error for missing command")
	}
}
