package main

import (
	"context"
	"log/slog"
	"time"

	hub "github.com/agenthub/agenthub/pkg/agenthub"
	"github.com/agenthub/agenthub/pkg/observability"
)

// newPlatform loads the catalog, initializes observability and builds
// the platform. The returned shutdown function flushes traces and
// closes the platform's stores.
func newPlatform(ctx context.Context, cli *CLI) (*hub.Platform, func(), error) {
	cfg, err := loadCatalog(cli)
	if err != nil {
		return nil, nil, err
	}

	tp, err := observability.InitGlobalTracer(ctx, cfg.Platform.Observability.Tracing)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.InitMetrics(ctx, cfg.Platform.Observability.Metrics)
	if err != nil {
		return nil, nil, err
	}
	observability.SetGlobalMetrics(metrics)

	metricsServer, err := observability.ServeMetrics(cfg.Platform.Observability.Metrics)
	if err != nil {
		return nil, nil, err
	}

	platform, err := hub.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {
		platform.Close()
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(flushCtx); err != nil {
				slog.Warn("Metrics server shutdown failed", "error", err)
			}
		}
		if closer, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := closer.Shutdown(flushCtx); err != nil {
				slog.Warn("Trace provider shutdown failed", "error", err)
			}
		}
	}
	return platform, shutdown, nil
}
