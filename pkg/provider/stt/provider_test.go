package stt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/interviewassist/pkg/provider/stt"
	"github.com/MrWong99/interviewassist/pkg/provider/stt/mock"
)

func TestCapability_Available(t *testing.T) {
	p := &mock.Provider{Text: "hello there"}
	c := stt.Available("mock", p)

	if !c.IsAvailable() {
		t.Fatal("expected capability to be available")
	}
	if c.Name() != "mock" {
		t.Errorf("name: got %q, want %q", c.Name(), "mock")
	}
	if got := c.Transcribe(context.Background(), []float32{0.1, 0.2}); got != "hello there" {
		t.Errorf("text: got %q, want %q", got, "hello there")
	}
	if p.CallCount() != 1 {
		t.Errorf("calls: got %d, want 1", p.CallCount())
	}
}

func TestCapability_UnavailableReturnsEmpty(t *testing.T) {
	c := stt.Unavailable("OPENAI_API_KEY not set")

	if c.IsAvailable() {
		t.Fatal("expected capability to be unavailable")
	}
	if c.Reason() != "OPENAI_API_KEY not set" {
		t.Errorf("reason: got %q", c.Reason())
	}
	if got := c.Transcribe(context.Background(), []float32{0.1}); got != "" {
		t.Errorf("text: got %q, want empty", got)
	}
	if _, err := c.TranscribeErr(context.Background(), []float32{0.1}); !errors.Is(err, stt.ErrUnavailable) {
		t.Errorf("err: got %v, want ErrUnavailable", err)
	}
}

func TestCapability_ZeroValueIsUnavailable(t *testing.T) {
	var c stt.Capability
	if c.IsAvailable() || c.Name() != "none" || c.Reason() == "" {
		t.Errorf("zero capability: available=%v name=%q reason=%q", c.IsAvailable(), c.Name(), c.Reason())
	}
	if stt.Available("x", nil).IsAvailable() {
		t.Error("Available with nil provider must be unavailable")
	}
}

func TestCapability_ErrorBecomesEmpty(t *testing.T) {
	errBackend := errors.New("HTTP 500")
	c := stt.Available("mock", &mock.Provider{Text: "ignored", Err: errBackend})

	if got := c.Transcribe(context.Background(), []float32{0.1}); got != "" {
		t.Errorf("text: got %q, want empty", got)
	}
	if _, err := c.TranscribeErr(context.Background(), []float32{0.1}); !errors.Is(err, errBackend) {
		t.Errorf("err: got %v, want wrapped backend error", err)
	}
}

func TestCapability_PanicBecomesEmpty(t *testing.T) {
	c := stt.Available("mock", &mock.Provider{Panic: "model exploded"})

	if got := c.Transcribe(context.Background(), []float32{0.1}); got != "" {
		t.Errorf("text: got %q, want empty", got)
	}
}

func TestCapability_EmptySegmentSkipsEngine(t *testing.T) {
	p := &mock.Provider{Text: "x"}
	c := stt.Available("mock", p)
	if got := c.Transcribe(context.Background(), nil); got != "" {
		t.Errorf("text: got %q, want empty", got)
	}
	if p.CallCount() != 0 {
		t.Errorf("calls: got %d, want 0", p.CallCount())
	}
}
