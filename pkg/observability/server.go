package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the Prometheus scrape endpoint.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// ServeMetrics starts an HTTP server exposing cfg.Endpoint on
// cfg.ListenAddr. It returns immediately; serve errors surface on
// Shutdown.
func ServeMetrics(cfg MetricsConfig) (*MetricsServer, error) {
	if !cfg.Enabled || cfg.ListenAddr == "" {
		return nil, nil
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, promhttp.Handler())

	ms := &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
	}
	go func() {
		_ = ms.server.Serve(listener)
	}()
	return ms, nil
}

// Addr returns the bound address, useful when ListenAddr used port 0.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
