// Package builtin registers entry points available in every condacall
// binary. The CLI uses them to probe a target environment.
package builtin

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/noob000007/remote-conda-decorator/registry"
	"github.com/noob000007/remote-conda-decorator/types"
)

// Registered names.
const (
	EnvInfoName = "condacall.EnvInfo"
	EchoName    = "condacall.Echo"
	WhichName   = "condacall.Which"
)

func init() {
	for name, fn := range map[string]any{
		EnvInfoName: EnvInfo,
		EchoName:    Echo,
		WhichName:   Which,
	} {
		if err := registry.RegisterName(name, fn); err != nil {
			panic(err)
		}
	}
}

// Info describes the process an entry point runs in.
type Info struct {
	// CondaEnv is CONDA_DEFAULT_ENV; empty outside an activated environment.
	CondaEnv    string `msgpack:"conda_env" json:"conda_env" yaml:"conda_env"`
	CondaPrefix string `msgpack:"conda_prefix" json:"conda_prefix" yaml:"conda_prefix"`
	Hostname    string `msgpack:"hostname" json:"hostname" yaml:"hostname"`
	PID         int    `msgpack:"pid" json:"pid" yaml:"pid"`
	Executable  string `msgpack:"executable" json:"executable" yaml:"executable"`
	Cwd         string `msgpack:"cwd" json:"cwd" yaml:"cwd"`
	GOOS        string `msgpack:"goos" json:"goos" yaml:"goos"`
	GOARCH      string `msgpack:"goarch" json:"goarch" yaml:"goarch"`
	GoVersion   string `msgpack:"go_version" json:"go_version" yaml:"go_version"`
	Version     string `msgpack:"version" json:"version" yaml:"version"`
	Protocol    int    `msgpack:"protocol" json:"protocol" yaml:"protocol"`
}

// EnvInfo reports where it runs. Lookup failures leave fields empty.
func EnvInfo() Info {
	info := Info{
		CondaEnv:    os.Getenv("CONDA_DEFAULT_ENV"),
		CondaPrefix: os.Getenv("CONDA_PREFIX"),
		PID:         os.Getpid(),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		GoVersion:   runtime.Version(),
		Version:     types.Version,
		Protocol:    types.ProtocolVersion,
	}
	info.Hostname, _ = os.Hostname()
	info.Executable, _ = os.Executable()
	info.Cwd, _ = os.Getwd()
	return info
}

// Echo returns its argument.
func Echo(v any) any {
	return v
}

// Which resolves a command on the PATH of the target environment.
func Which(name string) (string, error) {
	return exec.LookPath(name)
}
