package metrics

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fnecore/corehost/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer starts the /metrics listener if metrics are
// enabled, returning an error (rather than panicking) if the address is
// already bound so the caller's errgroup can report it cleanly.
func CreateMetricsServer(cfg *config.Config) error {
	if !cfg.Metrics.Enabled {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Metrics.Bind, cfg.Metrics.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics server to %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	return server.Serve(listener)
}
