package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/pipeline"
)

type recordingInserter struct {
	mu      sync.Mutex
	batches [][]pipeline.TranscriptEvent
	block   chan struct{}
	err     error
}

func (r *recordingInserter) insert(_ context.Context, evs []pipeline.TranscriptEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]pipeline.TranscriptEvent(nil), evs...))
	return r.err
}

func (r *recordingInserter) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func newTestStore(t *testing.T, ins *recordingInserter, opts ...Option) *Store {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	s := newStore(append([]Option{WithMetrics(m)}, opts...)...)
	s.insert = ins.insert
	go s.run()
	return s
}

func TestStore_BatchesBySize(t *testing.T) {
	ins := &recordingInserter{}
	s := newTestStore(t, ins, WithBatchSize(3), WithFlushInterval(time.Hour))

	for i := 0; i < 7; i++ {
		s.Publish(pipeline.TranscriptEvent{Text: "x", Kind: pipeline.KindLive})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := ins.total(); got != 7 {
		t.Fatalf("inserted %d events, want 7", got)
	}
	for i, b := range ins.batches {
		if len(b) > 3 {
			t.Errorf("batch %d has %d events, want at most 3", i, len(b))
		}
	}
}

func TestStore_FlushesOnInterval(t *testing.T) {
	ins := &recordingInserter{}
	s := newTestStore(t, ins, WithBatchSize(100), WithFlushInterval(10*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })

	s.Publish(pipeline.TranscriptEvent{Text: "partial"})

	deadline := time.Now().Add(2 * time.Second)
	for ins.total() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("partial batch never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStore_DropsWhenQueueFull(t *testing.T) {
	ins := &recordingInserter{block: make(chan struct{})}
	s := newTestStore(t, ins, WithQueueSize(2), WithBatchSize(1), WithFlushInterval(time.Hour))

	// The first event is taken by the writer, which then blocks inserting it.
	s.Publish(pipeline.TranscriptEvent{Text: "0"})
	deadline := time.Now().Add(2 * time.Second)
	for len(s.queue) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("writer never picked up the first event")
		}
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		s.Publish(pipeline.TranscriptEvent{Text: "x"})
	}
	if got := s.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}

	close(ins.block)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := ins.total(); got != 3 {
		t.Errorf("inserted %d events, want 3", got)
	}
}

func TestStore_InsertErrorDoesNotStopWriter(t *testing.T) {
	ins := &recordingInserter{err: errors.New("connection reset")}
	s := newTestStore(t, ins, WithBatchSize(1), WithFlushInterval(time.Hour))

	s.Publish(pipeline.TranscriptEvent{Text: "a"})
	s.Publish(pipeline.TranscriptEvent{Text: "b"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := ins.total(); got != 2 {
		t.Errorf("insert attempts covered %d events, want 2", got)
	}
}

func TestStore_PublishAfterCloseIsIgnored(t *testing.T) {
	ins := &recordingInserter{}
	s := newTestStore(t, ins)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s.Publish(pipeline.TranscriptEvent{Text: "late"})
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if got := ins.total(); got != 0 {
		t.Errorf("inserted %d events after close, want 0", got)
	}
}
