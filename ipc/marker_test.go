package ipc

import "testing"

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"plain", "RESULT_PATH:/dev/shm/result_ab.msgpack", "/dev/shm/result_ab.msgpack", true},
		{"crlf", "RESULT_PATH:/tmp/r.msgpack\r", "/tmp/r.msgpack", true},
		{"padded", "  RESULT_PATH:/tmp/r.msgpack  ", "/tmp/r.msgpack", true},
		{"empty path", "RESULT_PATH:", "", false},
		{"other output", "hello", "", false},
		{"prefix mid-line", "x RESULT_PATH:/tmp/r", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMarker(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseMarker(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsMarkerFor(t *testing.T) {
	want := "/dev/shm/result_ab.msgpack"
	if !IsMarkerFor(FormatMarker(want)+"\n", want) {
		t.Error("expected formatted marker to match its own path")
	}
	if IsMarkerFor("RESULT_PATH:/dev/shm/elsewhere", want) {
		t.Error("marker for another path must not match")
	}
}
