//go:build !whispercpp

package whisper_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/interviewassist/pkg/provider/stt"
	"github.com/MrWong99/interviewassist/pkg/provider/stt/whisper"
)

func TestNewNative_Stub(t *testing.T) {
	if whisper.NativeAvailable() {
		t.Error("NativeAvailable() = true without whispercpp tag")
	}
	if _, err := whisper.NewNative("model.bin"); !errors.Is(err, stt.ErrUnavailable) {
		t.Errorf("NewNative: got %v, want ErrUnavailable", err)
	}
}
