package ipc

import "strings"

// MarkerPrefix starts the single stdout line naming the result artifact.
const MarkerPrefix = "RESULT_PATH:"

// FormatMarker returns the marker line for path, without a trailing newline.
func FormatMarker(path string) string {
	return MarkerPrefix + path
}

// ParseMarker extracts the path from a marker-shaped line.
// Surrounding whitespace is ignored.
func ParseMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	path, ok := strings.CutPrefix(trimmed, MarkerPrefix)
	if !ok || path == "" {
		return "", false
	}
	return path, true
}

// IsMarkerFor reports whether line is the marker for exactly path.
// Lines that merely look like a marker (user output starting with the
// prefix) do not match, so they are relayed instead of misread.
func IsMarkerFor(line, path string) bool {
	got, ok := ParseMarker(line)
	return ok && got == path
}
