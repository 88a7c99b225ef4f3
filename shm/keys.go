package shm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact name prefixes. Sweep only ever touches names carrying one of these.
const (
	InputPrefix       = "input_"
	ResultPrefix      = "result_"
	LargeObjectPrefix = "largeobj_"
	RunnerPrefix      = "runner_"
)

// Artifact name extensions.
const (
	ArtifactExt    = ".msgpack"
	LargeObjectExt = ".msgpack.lz4"
)

var artifactPrefixes = []string{InputPrefix, ResultPrefix, LargeObjectPrefix, RunnerPrefix}

// NewToken returns a collision-resistant token: a UUIDv7 in hex.
// The embedded timestamp is what Sweep uses to age artifacts.
func NewToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// NewKey returns prefix + fresh token + ext.
func NewKey(prefix, ext string) string {
	return prefix + NewToken() + ext
}

// CallKeys returns the input and result keys for one call token.
func CallKeys(token string) (input, result string) {
	return InputPrefix + token + ArtifactExt, ResultPrefix + token + ArtifactExt
}

// ResultKeyFor derives the result key from an input key.
// A foreign input name gets a fresh result key.
func ResultKeyFor(inputKey string) string {
	token, ok := tokenWithPrefix(inputKey, InputPrefix, ArtifactExt)
	if !ok {
		return NewKey(ResultPrefix, ArtifactExt)
	}
	_, result := CallKeys(token)
	return result
}

// TokenOf extracts the token of any artifact key, including keys nested
// under a runner directory.
func TokenOf(key string) (string, bool) {
	top, _, _ := strings.Cut(key, "/")
	for _, prefix := range artifactPrefixes {
		rest, ok := strings.CutPrefix(top, prefix)
		if !ok {
			continue
		}
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			rest = rest[:i]
		}
		if _, err := uuid.Parse(rest); err != nil {
			return "", false
		}
		return rest, true
	}
	return "", false
}

// TokenTime returns the creation time embedded in a token.
// Tokens that are not UUIDv7 carry no time.
func TokenTime(token string) (time.Time, bool) {
	id, err := uuid.Parse(token)
	if err != nil || id.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec), true
}

func tokenWithPrefix(key, prefix, ext string) (string, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return "", false
	}
	token, ok := strings.CutSuffix(rest, ext)
	if !ok || token == "" || strings.ContainsRune(token, '/') {
		return "", false
	}
	return token, true
}
