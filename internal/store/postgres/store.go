// Package postgres persists transcript events to PostgreSQL.
//
// A [Store] is a [pipeline.Sink]. Publish only enqueues; a background writer
// drains the queue in batches so database latency never reaches the capture
// loop. When the queue is full events are dropped and counted.
//
// Usage:
//
//	store, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	sinks := pipeline.MultiSink{hub, store}
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/pipeline"
)

const (
	defaultQueue      = 256
	defaultBatch      = 32
	defaultFlushEvery = 500 * time.Millisecond
	closeTimeout      = 5 * time.Second
)

// Option configures a [Store].
type Option func(*Store)

// WithQueueSize sets the number of events buffered ahead of the writer.
func WithQueueSize(n int) Option {
	return func(s *Store) { s.queueSize = max(n, 1) }
}

// WithBatchSize sets the maximum number of events written per round trip.
func WithBatchSize(n int) Option {
	return func(s *Store) { s.batchSize = max(n, 1) }
}

// WithFlushInterval sets how long a partial batch may wait before it is
// written.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.flushEvery = d
		}
	}
}

// WithMetrics records dropped events on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is a PostgreSQL-backed transcript log. All methods are safe for
// concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	insert func(ctx context.Context, evs []pipeline.TranscriptEvent) error

	queueSize  int
	batchSize  int
	flushEvery time.Duration
	metrics    *observe.Metrics

	queue   chan pipeline.TranscriptEvent
	done    chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// New connects to the database at dsn, runs [Migrate] and starts the
// background writer.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	s := newStore(opts...)
	s.pool = pool
	s.insert = s.insertBatch
	go s.run()
	return s, nil
}

func newStore(opts ...Option) *Store {
	s := &Store{
		queueSize:  defaultQueue,
		batchSize:  defaultBatch,
		flushEvery: defaultFlushEvery,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.queue = make(chan pipeline.TranscriptEvent, s.queueSize)
	return s
}

// Publish implements [pipeline.Sink]. It never blocks.
func (s *Store) Publish(ev pipeline.TranscriptEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		s.metrics.RecordDrop(context.Background(), "postgres")
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (s *Store) Dropped() int64 { return s.dropped.Load() }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close stops accepting events, writes everything still queued and releases
// the connection pool. It waits at most a few seconds for the writer.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	var err error
	select {
	case <-s.done:
	case <-time.After(closeTimeout):
		err = errors.New("postgres store: close: writer did not drain in time")
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// run drains the queue until it is closed, writing batches of up to
// batchSize events at least every flushEvery.
func (s *Store) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushEvery)
	defer ticker.Stop()

	batch := make([]pipeline.TranscriptEvent, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := s.insert(ctx, batch); err != nil {
			slog.Warn("postgres store: writing transcript events", "events", len(batch), "err", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Store) insertBatch(ctx context.Context, evs []pipeline.TranscriptEvent) error {
	const q = `
		INSERT INTO transcript_events (session_id, kind, text, timestamp, duration_ns)
		VALUES ($1, $2, $3, $4, $5)`

	b := &pgx.Batch{}
	for _, ev := range evs {
		b.Queue(q, ev.SessionID, string(ev.Kind), ev.Text, ev.Timestamp, ev.Duration.Nanoseconds())
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("postgres store: insert batch: %w", err)
	}
	return nil
}

// Recent returns up to limit events for sessionID, oldest first. An empty
// sessionID selects events from every session.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]pipeline.TranscriptEvent, error) {
	const q = `
		SELECT session_id, kind, text, timestamp, duration_ns
		FROM (
		    SELECT id, session_id, kind, text, timestamp, duration_ns
		    FROM   transcript_events
		    WHERE  $1 = '' OR session_id = $1
		    ORDER  BY id DESC
		    LIMIT  $2
		) recent
		ORDER BY id`

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent: %w", err)
	}
	evs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pipeline.TranscriptEvent, error) {
		var (
			ev   pipeline.TranscriptEvent
			kind string
			dur  int64
		)
		if err := row.Scan(&ev.SessionID, &kind, &ev.Text, &ev.Timestamp, &dur); err != nil {
			return ev, err
		}
		ev.Kind = pipeline.Kind(kind)
		ev.Duration = time.Duration(dur)
		return ev, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent: scan: %w", err)
	}
	return evs, nil
}

var _ pipeline.Sink = (*Store)(nil)
