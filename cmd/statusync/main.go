package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/netspec/statusync/internal/api"
	"github.com/netspec/statusync/internal/config"
	"github.com/netspec/statusync/internal/logbuffer"
	"github.com/netspec/statusync/internal/metrics"
	"github.com/netspec/statusync/internal/reconciler"
	"github.com/netspec/statusync/internal/statuspage"
	"github.com/netspec/statusync/internal/types"
	"github.com/netspec/statusync/internal/version"
)

func main() {
	configPath := flag.String("config", "/config/statusync.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	eventPath := flag.String("event", "", "Deliver a single alert event from this JSON file (- for stdin) and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Keep the last 1000 log lines for /api/logs
	logBuffer := logbuffer.New(1000)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logLevelParsed, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logLevelParsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevelParsed)

	// One-shot mode keeps stdout clean for the caller
	var out io.Writer = os.Stdout
	if *eventPath != "" {
		out = os.Stderr
	}
	logger := zerolog.New(io.MultiWriter(out, logBuffer)).With().
		Timestamp().
		Str("version", version.Version).
		Str("commit", version.Commit).
		Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("Failed to load configuration")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	engine, err := buildEngine(cfg, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build reconciler")
	}

	if *eventPath != "" {
		os.Exit(deliverOnce(engine, cfg, *eventPath, logger))
	}

	server := api.NewServer(engine, logger, cfg.Server.Port)
	server.SetLogBuffer(logBuffer)
	server.SetGatherer(registry)
	server.SetVersion(version.Version, version.Commit, version.BuildDate)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().
				Err(err).
				Msg("API server error")
		}
	}()

	logger.Info().
		Str("port", cfg.Server.Port).
		Str("subdomain", cfg.Freshstatus.APISubdomain).
		Str("group_scope", cfg.Freshstatus.GroupScope).
		Msg("statusync running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}
	logger.Info().Msg("statusync stopped")
}

// buildEngine wires the status page client into the reconciler
func buildEngine(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*reconciler.Engine, error) {
	fs := cfg.Freshstatus
	warning, critical, err := fs.Statuses()
	if err != nil {
		return nil, err
	}

	client := statuspage.NewClient(statuspage.ClientConfig{
		BaseURL:   fs.BaseURL,
		Subdomain: fs.APISubdomain,
		APIKey:    fs.ResolveAPIKey(),
		Timeout:   fs.Timeout,
		UserAgent: version.UserAgent(),
		Observe:   m.ObserveRequest,
	}, logger)

	engine := reconciler.NewEngine(
		client,
		reconciler.NewMarkerLocator(client, cfg.Reconciler.MarkerPrefix, logger),
		reconciler.NewComponentResolver(client, statuspage.ID(fs.GroupScope), logger),
		reconciler.NewStatusMapper(reconciler.StatusMapping{Warning: warning, Critical: critical}),
		reconciler.Options{
			ResolveMessage: cfg.Reconciler.ResolveMessage,
			SyncOnResolve:  cfg.Reconciler.SyncOnResolve,
		},
		logger,
	)
	engine.SetRecorder(m)
	return engine, nil
}

// deliverOnce reads one event, reconciles it and returns the process exit code
func deliverOnce(engine *reconciler.Engine, cfg *config.Config, path string, logger zerolog.Logger) int {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			logger.Error().Err(err).Str("event_path", path).Msg("Failed to open event")
			return 2
		}
		defer f.Close()
		r = f
	}

	ev, err := readEvent(r)
	if err != nil {
		logger.Error().Err(err).Str("event_path", path).Msg("Rejected event")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*cfg.Freshstatus.Timeout)
	defer cancel()

	res := engine.Handle(ctx, ev)
	json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
		"handled":         res.Err == nil,
		"correlation_key": res.Key,
		"outcome":         res.Outcome,
		"incident_id":     res.IncidentID,
	})
	if res.Err != nil {
		return 1
	}
	return 0
}

// readEvent decodes one event and applies the same checks as the HTTP intake
func readEvent(r io.Reader) (types.AlertEvent, error) {
	var ev types.AlertEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return ev, fmt.Errorf("decoding event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}
