package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/interviewassist/internal/config"
	"github.com/MrWong99/interviewassist/internal/feed"
	"github.com/MrWong99/interviewassist/internal/health"
	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/session"
	"github.com/MrWong99/interviewassist/internal/store/postgres"
	"github.com/MrWong99/interviewassist/pkg/capture"
	"github.com/MrWong99/interviewassist/pkg/provider/stt"
)

// serverDeps holds the components exposed over HTTP.
type serverDeps struct {
	manager *session.Manager
	hub     *feed.Hub
	store   *postgres.Store
	capture capture.Backend
	stt     stt.Capability
	metrics *observe.Metrics
}

// newServer builds the control API:
//
//	GET  /healthz, /readyz   liveness and readiness
//	GET  /metrics            Prometheus scrape endpoint
//	GET  /events             WebSocket transcript feed
//	POST /session/start      start a capture session
//	POST /session/stop       stop the active session
//	GET  /session            active session info
//	GET  /transcripts        persisted transcripts (postgres only)
func newServer(cfg *config.Config, d serverDeps) *http.Server {
	mux := http.NewServeMux()

	checks := []health.Checker{
		health.CaptureChecker(d.capture, cfg.Pipeline.LoopbackOnly),
		health.TranscriptionChecker(d.stt),
	}
	if d.store != nil {
		checks = append(checks, health.PingChecker("store", d.store.Ping))
		d.store.Register(mux)
	}
	health.New(checks...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /events", d.hub)
	d.manager.Register(mux)

	return &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(d.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
