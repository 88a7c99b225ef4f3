// Package config handles condacall.yaml loading.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRef matches $$, ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config file:
//
//	${VAR}           value of VAR, empty when unset
//	${VAR:-default}  value of VAR, or default when unset or empty
//	${VAR:?message}  value of VAR, or an error carrying message
//	$$               a literal $
//
// Conda environment names are often supplied this way, e.g.
// env: ${CONDA_ENV:?set the target environment}.
func ExpandEnv(input string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range envRef.FindAllStringSubmatchIndex(input, -1) {
		b.WriteString(input[last:m[0]])
		last = m[1]

		if input[m[0]:m[1]] == "$$" {
			b.WriteByte('$')
			continue
		}

		name := input[m[2]:m[3]]
		value := os.Getenv(name)
		if value != "" || m[4] < 0 {
			b.WriteString(value)
			continue
		}

		arg := input[m[6]:m[7]]
		if input[m[4]:m[5]] == ":?" {
			if arg == "" {
				arg = "not set"
			}
			return "", fmt.Errorf("${%s}: %s", name, arg)
		}
		b.WriteString(arg)
	}
	b.WriteString(input[last:])
	return b.String(), nil
}
