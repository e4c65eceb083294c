// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to control the text returned for each segment and to inspect
// which samples were submitted for transcription.
//
// Example:
//
//	p := &mock.Provider{Text: "hello world"}
//	capability := stt.Available("mock", p)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/interviewassist/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Samples is a copy of the samples passed to Transcribe.
	Samples []float32
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is returned by every successful Transcribe call.
	Text string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Panic, if non-nil, is passed to panic by every Transcribe call.
	Panic any

	// Delay makes Transcribe wait before returning. The wait ends early with
	// ctx.Err() when ctx is cancelled.
	Delay time.Duration

	// Block, if non-nil, makes Transcribe wait until it is closed. Unlike
	// Delay the wait ignores ctx, like an engine stuck in a blocking call.
	Block <-chan struct{}

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(ctx context.Context, samples []float32) (string, error) {
	p.mu.Lock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Samples: cp})
	text, err, pnc, delay, block := p.Text, p.Err, p.Panic, p.Delay, p.Block
	p.mu.Unlock()

	if pnc != nil {
		panic(pnc)
	}
	if block != nil {
		<-block
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return text, err
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
