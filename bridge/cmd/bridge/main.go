package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/serialbridge/serialbridge/bridge/internal/config"
	"github.com/serialbridge/serialbridge/bridge/internal/delivery"
	"github.com/serialbridge/serialbridge/bridge/internal/metrics"
	"github.com/serialbridge/serialbridge/bridge/internal/pipeline"
	"github.com/serialbridge/serialbridge/bridge/internal/security"
	"github.com/serialbridge/serialbridge/bridge/internal/serial"
)

// drainTimeout bounds the wait for in-flight deliveries on shutdown.
const drainTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "optional path to config file (environment variables override it)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	slog.Info("serialbridge starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	b := cfg.Bridge
	slog.Info("config loaded",
		"device", b.Device,
		"baud", b.BaudRate,
		"endpoint", b.Endpoint,
		"reconnect_delay", b.ReconnectDelay,
		"post_timeout", b.PostTimeout,
		"max_post_retries", b.MaxPostRetries,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Surface a bad ingest certificate now rather than as delivery noise.
	if info := security.Check(ctx, b.Endpoint); info != nil {
		switch info.Status {
		case "valid":
			slog.Info("ingest endpoint certificate ok",
				"issuer", info.Issuer, "days_left", info.DaysLeft)
		default:
			slog.Warn("ingest endpoint certificate problem",
				"status", info.Status, "issuer", info.Issuer, "days_left", info.DaysLeft)
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var headers map[string]string
	if key := b.Auth.Key(); key != "" {
		headers = map[string]string{b.Auth.EffectiveHeader(): key}
	}
	client := delivery.New(b.Endpoint, delivery.Policy{
		Timeout:    b.PostTimeout,
		MaxRetries: b.MaxPostRetries,
	}, headers)
	client.OnRetry(func(int) { m.RetriesTotal.Inc() })

	sup := serial.NewSupervisor(serial.Config{
		Device:         b.Device,
		BaudRate:       b.BaudRate,
		Delimiter:      b.Delimiter,
		ReconnectDelay: b.ReconnectDelay,
	}, m)

	pipe := pipeline.New(client, m)

	// Watch the config file so operators see when a restart is needed.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, cfg, func(_ *config.Config, changed []string) {
				slog.Warn("config file changed — restart to apply", "settings", changed)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	if b.MetricsAddr != "" {
		go serveMetrics(ctx, b.MetricsAddr, reg, sup)
	}

	go sup.Run(ctx)

	// Forward until shutdown; the supervisor closes Lines when it returns.
	pipe.Run(ctx, sup.Lines())

	if !pipe.Drain(drainTimeout) {
		slog.Warn("shutdown with deliveries still in flight", "waited", drainTimeout)
	}
	slog.Info("serialbridge shutting down")
}

// serveMetrics runs the /metrics and /healthz listener until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, sup *serial.Supervisor) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// The bridge is alive as long as the process runs; connection
		// state is informational.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":"` + sup.State().String() + `"}`)) //nolint:errcheck
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("metrics listener up", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})
	if err := g.Wait(); err != nil {
		slog.Error("metrics listener stopped", "err", err)
	}
}

// logLevel maps LOG_LEVEL to a slog level, defaulting to info.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
