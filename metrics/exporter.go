// Package metrics exposes prometheus metrics of the journal.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kjk/journal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(StoreOps, StoreOpLatency, StoreBytesWritten, StoreBytesRead, StoreRecords)
}

// StartMetricsServer serves /metrics on port in the background.
// Call Shutdown() on returned server to stop it.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		log.Logf("metrics: prometheus exporter listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics: failed to start metrics server: %v", err)
		}
	}()
	return srv
}
