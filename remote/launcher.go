package remote

import (
	"fmt"
	"os"
	"strings"
)

// EnvPlaceholder is replaced by the environment name in launcher arguments.
const EnvPlaceholder = "{env}"

// DefaultLauncher runs a command inside a named conda environment with its
// output streamed rather than captured.
var DefaultLauncher = []string{"conda", "run", "--no-capture-output", "-n", EnvPlaceholder}

// BuildCommand returns launcher, with the environment substituted, followed
// by the program argv.
func BuildCommand(launcher []string, env string, program []string) []string {
	argv := make([]string, 0, len(launcher)+len(program))
	for _, arg := range launcher {
		argv = append(argv, strings.ReplaceAll(arg, EnvPlaceholder, env))
	}
	return append(argv, program...)
}

// StdoutRelay prints a child output line as "[env] line" on os.Stdout.
func StdoutRelay(env, line string) {
	fmt.Fprintf(os.Stdout, "[%s] %s\n", env, line)
}
