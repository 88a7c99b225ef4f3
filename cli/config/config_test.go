package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/noob000007/remote-conda-decorator/runner"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `env: scanpy
launcher: [micromamba, run, -n, "{env}"]
store:
  root: /dev/shm/condacall-test
program:
  kind: generated
  go: /opt/go/bin/go
  imports:
    - example.com/analysis/entrypoints
  modules:
    - path: example.com/analysis
      dir: /home/user/analysis
timeout: 5m
log_level: debug
no_color: true
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "env", cfg.Env, "scanpy")
	assertEqual(t, "launcher", strings.Join(cfg.Launcher, " "), "micromamba run -n {env}")
	assertEqual(t, "store.root", cfg.Store.Root, "/dev/shm/condacall-test")
	assertEqual(t, "program.kind", cfg.Program.Kind, ProgramGenerated)
	assertEqual(t, "program.go", cfg.Program.Go, "/opt/go/bin/go")
	assertEqual(t, "log_level", cfg.LogLevel, "debug")
	if len(cfg.Program.Imports) != 1 || cfg.Program.Imports[0] != "example.com/analysis/entrypoints" {
		t.Errorf("program.imports = %v", cfg.Program.Imports)
	}
	if len(cfg.Program.Modules) != 1 {
		t.Fatalf("program.modules = %v", cfg.Program.Modules)
	}
	assertEqual(t, "program.modules[0].dir", cfg.Program.Modules[0].Dir, "/home/user/analysis")
	if cfg.Timeout.Duration != 5*time.Minute {
		t.Errorf("timeout = %v, want 5m", cfg.Timeout.Duration)
	}
	if !cfg.NoColor {
		t.Error("expected no_color=true")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for empty config: %v", err)
	}
	assertEqual(t, "env", cfg.Env, "")
	if cfg.Timeout.Duration != 0 {
		t.Errorf("timeout = %v, want 0", cfg.Timeout.Duration)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/condacall.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CONDACALL_TEST_ENV_NAME", "expanded-env")
	path := writeTemp(t, "env: ${CONDACALL_TEST_ENV_NAME}\nlog_level: ${UNSET_LEVEL_12345:-warn}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "env", cfg.Env, "expanded-env")
	assertEqual(t, "log_level", cfg.LogLevel, "warn")
}

func TestLoad_RequiredVariableMissing(t *testing.T) {
	path := writeTemp(t, "env: ${UNSET_ENV_12345:?set the conda environment}\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for a missing required variable")
	}
	if !strings.Contains(err.Error(), "set the conda environment") {
		t.Errorf("error should carry the message, got: %v", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "env: base\nbogus_key: should_fail\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	path := writeTemp(t, "store:\n  root: /tmp/x\n  unknown_field: bad\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	path := writeTemp(t, "timeout: not-a-duration\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, ""},
		{"self", Config{Program: ProgramConfig{Kind: ProgramSelf}}, ""},
		{"generated without imports", Config{Program: ProgramConfig{Kind: ProgramGenerated}}, "program.imports"},
		{"unknown kind", Config{Program: ProgramConfig{Kind: "docker"}}, "unknown program.kind"},
		{"negative timeout", Config{Timeout: Duration{-time.Second}}, "negative"},
		{
			"module without path",
			Config{Program: ProgramConfig{Kind: ProgramGenerated, Imports: []string{"x/y"}, Modules: []runner.Module{{Dir: "/x"}}}},
			"path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunnerProgram(t *testing.T) {
	cfg := &Config{Program: ProgramConfig{Executable: "/usr/local/bin/condacall"}}
	prog, err := cfg.RunnerProgram()
	if err != nil {
		t.Fatalf("RunnerProgram failed: %v", err)
	}
	self, ok := prog.(runner.SelfProgram)
	if !ok {
		t.Fatalf("program = %T, want runner.SelfProgram", prog)
	}
	assertEqual(t, "executable", self.Executable, "/usr/local/bin/condacall")

	cfg = &Config{Program: ProgramConfig{Kind: ProgramGenerated, Go: "go1.25", Imports: []string{"example.com/x"}}}
	prog, err = cfg.RunnerProgram()
	if err != nil {
		t.Fatalf("RunnerProgram failed: %v", err)
	}
	gen, ok := prog.(runner.GeneratedProgram)
	if !ok {
		t.Fatalf("program = %T, want runner.GeneratedProgram", prog)
	}
	assertEqual(t, "go", gen.GoBinary, "go1.25")
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault without a file failed: %v", err)
	}
	assertEqual(t, "env", cfg.Env, "")

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("env: from-default\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	assertEqual(t, "env", cfg.Env, "from-default")
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "condacall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
