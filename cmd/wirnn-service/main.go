package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wirnn/wirnn-service/internal/api"
	"github.com/wirnn/wirnn-service/internal/auth"
	"github.com/wirnn/wirnn-service/internal/config"
	"github.com/wirnn/wirnn-service/internal/efd"
	"github.com/wirnn/wirnn-service/internal/metrics"
	"github.com/wirnn/wirnn-service/internal/ws"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	description      = "Web service exposing Engineering Facilities Database telemetry."
	repositoryURL    = "https://github.com/wirnn/wirnn-service"
	documentationURL = "https://wirnn-service.lsst.io"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; env vars apply either way)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(buildLogger(cfg.Profile, level))

	slog.Info("wirnn-service starting",
		"version", version,
		"port", cfg.Port,
		"path_prefix", cfg.PathPrefix,
		"efd_instance", cfg.EFD.Instance,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()

	// Two-phase EFD init: resolve credentials first, then construct the
	// client, so a secrets-service failure is distinguishable from a
	// query failure.
	var querier api.Querier
	var hubQuerier ws.Querier
	if cfg.EFD.Instance != "" {
		collector.IncCredentialFetch()
		creds, err := efd.NewResolver(cfg.EFD.SecretsEndpoint).Resolve(ctx, cfg.EFD.Instance)
		if err != nil {
			slog.Error("failed to resolve EFD credentials", "instance", cfg.EFD.Instance, "err", err)
			os.Exit(1)
		}
		client := efd.NewClient(creds)
		querier = client
		hubQuerier = client
		slog.Info("EFD client ready", "instance", cfg.EFD.Instance, "host", creds.Host)
	} else {
		slog.Warn("no EFD instance configured — topic and stream endpoints disabled")
	}

	meta := api.Metadata{
		Name:             cfg.Name,
		Version:          version,
		Description:      description,
		RepositoryURL:    repositoryURL,
		DocumentationURL: documentationURL,
	}

	mux := http.NewServeMux()
	protect := auth.APIKeyMiddleware(cfg.Auth.Mode, cfg.Auth.EffectiveHeader(), cfg.Auth.Key())
	mux.Handle(cfg.PathPrefix+"/", protect(api.New(cfg.PathPrefix, meta, querier, collector)))
	mux.Handle("/metrics", collector.Handler())

	if hubQuerier != nil && len(cfg.Stream.Topics) > 0 {
		hub := ws.New(hubQuerier, cfg.Stream.Topics, cfg.Stream.Interval, collector)
		go hub.Run(ctx)
		mux.Handle(cfg.PathPrefix+"/ws/stream", protect(hub))
		slog.Info("stream hub enabled", "topics", len(cfg.Stream.Topics), "interval", cfg.Stream.Interval)
	}

	// Hot-reload: only the log level is adjusted at runtime; everything
	// else requires a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				level.Set(slogLevel(updated.LogLevel))
				slog.Info("log level updated", "level", updated.LogLevel)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("wirnn-service shutting down")
	srv.Shutdown(context.Background()) //nolint:errcheck
}

// buildLogger selects the handler for the logging profile: JSON in
// production, human-readable text in development.
func buildLogger(profile string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if profile == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// slogLevel maps a config log level string to a slog.Level.
func slogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
