// Package session manages the lifecycle of capture sessions.
//
// A [Manager] owns at most one running [pipeline.Worker] at a time. Starting
// a second session while one is active fails with [ErrSessionActive] and
// leaves the running worker untouched. The package also exposes the HTTP
// control surface for starting, stopping and inspecting sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/pipeline"
)

// ErrSessionActive is returned by [Manager.Start] while a session is running.
var ErrSessionActive = errors.New("session: a session is already active")

// Info holds metadata about the active session.
type Info struct {
	// Active reports whether a session is running. The remaining fields are
	// zero when it is false.
	Active bool `json:"active"`

	// SessionID is the unique identifier for this session.
	SessionID string `json:"session_id,omitempty"`

	// StartedAt is when the session was started.
	StartedAt time.Time `json:"started_at,omitzero"`

	// DeviceName is the preferred capture device the session was started
	// with. Empty means the first loopback device.
	DeviceName string `json:"device_name,omitempty"`
}

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	// Defaults is the pipeline configuration used when Start receives no
	// overrides.
	Defaults pipeline.Config

	// Dependencies are handed to every worker. SessionID is overwritten per
	// session.
	Dependencies pipeline.Dependencies

	// Metrics records the active-session gauge. Nil uses
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Manager manages the lifecycle of capture sessions. Only one session can be
// active at a time. All exported methods are safe for concurrent use.
type Manager struct {
	deps    pipeline.Dependencies
	metrics *observe.Metrics

	mu       sync.Mutex
	defaults pipeline.Config
	worker   *pipeline.Worker
	info     Info

	// draining is a stopped worker that missed its stop deadline. It may
	// still hold the capture stream, so no new session starts until it exits.
	draining   *pipeline.Worker
	drainingID string
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	deps := cfg.Dependencies
	if deps.Metrics == nil {
		deps.Metrics = m
	}
	return &Manager{defaults: cfg.Defaults, deps: deps, metrics: m}
}

// Defaults returns the pipeline configuration used for sessions started
// without overrides.
func (m *Manager) Defaults() pipeline.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// SetDefaults replaces the configuration used for future sessions. A running
// session keeps the configuration it was started with.
func (m *Manager) SetDefaults(cfg pipeline.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("session: set defaults: %w", err)
	}
	m.mu.Lock()
	m.defaults = cfg
	m.mu.Unlock()
	return nil
}

// Start begins a new session running cfg. The worker outlives ctx's
// cancellation; only [Manager.Stop] ends it.
//
// Returns [ErrSessionActive] if a session is already running.
func (m *Manager) Start(ctx context.Context, cfg pipeline.Config) (Info, error) {
	if err := cfg.Validate(); err != nil {
		return Info{}, fmt.Errorf("session: start: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker != nil {
		return m.info, fmt.Errorf("%w (id=%s)", ErrSessionActive, m.info.SessionID)
	}
	if m.draining != nil {
		return Info{}, fmt.Errorf("%w (id=%s is still shutting down)", ErrSessionActive, m.drainingID)
	}

	id := uuid.NewString()
	deps := m.deps
	deps.SessionID = id
	w := pipeline.NewWorker(cfg, deps)
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		return Info{}, fmt.Errorf("session: start worker: %w", err)
	}

	m.worker = w
	m.info = Info{
		Active:     true,
		SessionID:  id,
		StartedAt:  time.Now().UTC(),
		DeviceName: cfg.DeviceName,
	}
	m.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("session started",
		"session_id", id,
		"device", cfg.DeviceName,
		"vad_aggressiveness", cfg.VADAggressiveness,
	)
	return m.info, nil
}

// Stop ends the active session and waits for its worker to exit. Stopping
// when no session is active is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker == nil {
		return nil
	}

	id, w := m.info.SessionID, m.worker
	err := w.Stop()
	if err != nil {
		slog.Warn("session: worker did not stop cleanly", "session_id", id, "err", err)
		if errors.Is(err, pipeline.ErrStopTimeout) {
			m.draining, m.drainingID = w, id
			go m.awaitDrain(w, id)
		}
	}

	m.worker = nil
	m.info = Info{}
	m.metrics.ActiveSessions.Add(context.Background(), -1)

	slog.Info("session stopped", "session_id", id)
	if err != nil {
		return fmt.Errorf("session: stop %s: %w", id, err)
	}
	return nil
}

// awaitDrain releases the start slot once a late worker finally exits.
func (m *Manager) awaitDrain(w *pipeline.Worker, id string) {
	<-w.Done()
	m.mu.Lock()
	if m.draining == w {
		m.draining, m.drainingID = nil, ""
	}
	m.mu.Unlock()
	slog.Info("session worker exited after stop deadline", "session_id", id)
}

// IsActive reports whether a session is currently running.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker != nil
}

// Info returns metadata about the active session, or a zero Info with
// Active false when none is running.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}
