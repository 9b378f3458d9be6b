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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/serialbridge/serialbridge/server/internal/alerts"
	"github.com/serialbridge/serialbridge/server/internal/api"
	"github.com/serialbridge/serialbridge/server/internal/auth"
	"github.com/serialbridge/serialbridge/server/internal/config"
	"github.com/serialbridge/serialbridge/server/internal/receiver"
	"github.com/serialbridge/serialbridge/server/internal/store"
	"github.com/serialbridge/serialbridge/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("serialbridge-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"store_capacity", cfg.Server.Store.Capacity,
		"source_ttl", cfg.Server.Store.SourceTTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Record store with background TTL eviction of silent sources.
	st := store.New(cfg.Server.Store.Capacity, cfg.Server.Store.SourceTTL, cfg.Server.Store.RateWindow)
	go st.Run(ctx)

	// Alerts engine — evaluates rules against the store on a timer so a
	// source that stops sending entirely still fires its silence rule.
	alertEngine := alerts.New(cfg.Server.Alerts)
	go alertEngine.Run(ctx, st)

	// WebSocket hub — pushes every record as it arrives and broadcasts the
	// source overview to UI clients on an interval.
	hub := ws.New(st, cfg.Server.WSInterval)
	go hub.Run(ctx)

	// Ingest endpoint with optional API key authentication.
	ingest := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		receiver.New(st, hub),
	)

	// Combined HTTP server: ingest + REST API + WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/v1/ingest", ingest)
	httpMux.Handle("/api/", api.New(st, alertEngine))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", promhttp.Handler())

	// Optional: serve the pre-built dashboard from a local directory.
	// Usage:  ./bin/serialbridge-server -config config/server.yaml -ui-dir ui/dist
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// SPA fallback: if the requested file doesn't exist, serve index.html.
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("serialbridge-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
