// Command interviewassist captures system audio, segments it into utterances
// and publishes live transcripts to a local WebSocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/interviewassist/internal/config"
	"github.com/MrWong99/interviewassist/internal/feed"
	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/pipeline"
	"github.com/MrWong99/interviewassist/internal/session"
	"github.com/MrWong99/interviewassist/internal/store/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	simulate := flag.Bool("simulate", false, "skip audio capture and publish simulated transcripts")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stderr, "interviewassist: config file %q not found, using defaults\n", *configPath)
		cfg = config.Default()
	case err != nil:
		fmt.Fprintf(os.Stderr, "interviewassist: %v\n", err)
		return 1
	}
	if *simulate {
		cfg.Capture.Backend = config.CaptureNone
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(cfg.Server.LogLevel.SlogLevel())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("interviewassist starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := telemetry.Metrics

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	deps, closeProviders := buildDependencies(cfg, reg)
	deps.Metrics = metrics

	// ── Sinks ─────────────────────────────────────────────────────────────────
	hub := feed.NewHub(
		feed.WithOriginPatterns(cfg.Server.AllowedOrigins...),
		feed.WithMetrics(metrics),
	)
	sinks := pipeline.MultiSink{pipeline.LogSink{Logger: slog.Default()}, hub}

	var store *postgres.Store
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		store, err = postgres.New(ctx, dsn, postgres.WithMetrics(metrics))
		if err != nil {
			slog.Error("failed to open transcript store", "err", err)
			return 1
		}
		sinks = append(sinks, store)
		slog.Info("transcript store enabled")
	}
	deps.Sink = sinks

	manager := session.NewManager(session.ManagerConfig{
		Defaults:     cfg.PipelineConfig(),
		Dependencies: deps,
		Metrics:      metrics,
	})

	printStartupSummary(cfg, deps)

	// ── Hot reload ────────────────────────────────────────────────────────────
	var watcher *config.Watcher
	if _, statErr := os.Stat(*configPath); statErr == nil {
		watcher, err = config.NewWatcher(*configPath, func(_, updated *config.Config, d config.ConfigDiff) {
			applyReload(d, updated, &level, manager)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		}
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	srv := newServer(cfg, serverDeps{
		manager: manager,
		hub:     hub,
		store:   store,
		capture: deps.Capture,
		stt:     deps.STT,
		metrics: metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("control API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Pipeline.Autostart {
		if info, err := manager.Start(ctx, manager.Defaults()); err != nil {
			slog.Error("autostart failed", "err", err)
		} else {
			slog.Info("session autostarted", "session_id", info.SessionID)
		}
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	exit := 0
	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		exit = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if watcher != nil {
		watcher.Stop()
	}
	if err := manager.Stop(); err != nil {
		slog.Warn("session stop error", "err", err)
	}
	if err := hub.Close(); err != nil {
		slog.Warn("event feed close error", "err", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("transcript store close error", "err", err)
		}
	}
	closeProviders()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return exit
}

// applyReload applies the hot-reloadable parts of a config change and logs
// the rest.
func applyReload(d config.ConfigDiff, updated *config.Config, level *slog.LevelVar, manager *session.Manager) {
	if d.LogLevelChanged {
		level.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.PipelineChanged {
		if err := manager.SetDefaults(updated.PipelineConfig()); err != nil {
			slog.Warn("ignoring pipeline change", "err", err)
		} else {
			slog.Info("session defaults updated; applies to the next session")
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, deps pipeline.Dependencies) {
	capture := "simulator"
	if deps.Capture != nil {
		capture = string(cfg.Capture.Backend)
	}
	store := "(disabled)"
	if cfg.Store.PostgresDSN != "" {
		store = "postgres"
	}
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║    interviewassist: startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Capture", capture)
	printRow("VAD", deps.DetectorName)
	printRow("Transcription", deps.STT.String())
	printRow("Store", store)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, truncate(value, 19))
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
