package silero

import (
	"testing"
)

func TestThreshold(t *testing.T) {
	tests := []struct {
		level int
		want  float32
	}{
		{level: -1, want: 0.3},
		{level: 0, want: 0.3},
		{level: 1, want: 0.5},
		{level: 2, want: 0.65},
		{level: 3, want: 0.8},
		{level: 7, want: 0.8},
	}
	for _, tt := range tests {
		if got := Threshold(tt.level); got != tt.want {
			t.Errorf("Threshold(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLibraryPath(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/ort/libonnxruntime.so.1")

	if got := (Options{LibraryPath: "/explicit.so"}).libraryPath(); got != "/explicit.so" {
		t.Errorf("explicit: got %q", got)
	}
	if got := (Options{}).libraryPath(); got != "/opt/ort/libonnxruntime.so.1" {
		t.Errorf("env: got %q", got)
	}
}
