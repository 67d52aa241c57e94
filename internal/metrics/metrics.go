// Package metrics exposes conversion counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/io/dlog"
)

// File outcomes used as the status label of FilesTotal.
const (
	StatusConverted = "converted"
	StatusCopied    = "copied"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

var (
	// RecordsTotal counts decoded records by kind (row or comment).
	RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zeekagent_records_total",
		Help: "Count of records converted, by kind.",
	}, []string{"kind"})

	// RowsTruncated counts rows holding fewer fields than their header declares.
	RowsTruncated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zeekagent_rows_truncated_total",
		Help: "Count of rows with fewer fields than declared.",
	})

	// FilesTotal counts processed files by outcome.
	FilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zeekagent_files_total",
		Help: "Count of processed log files, by status.",
	}, []string{"status"})
)

// RegisterMonitoring registers all of this package's metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		RecordsTotal,
		RowsTruncated,
		FilesTotal,
	)
}

// ObserveRecords adds the counts of one converted file.
func ObserveRecords(rows, comments, truncated uint64) {
	RecordsTotal.WithLabelValues("row").Add(float64(rows))
	RecordsTotal.WithLabelValues("comment").Add(float64(comments))
	RowsTruncated.Add(float64(truncated))
}

// ObserveFile counts one file with the given status.
func ObserveFile(status string) {
	FilesTotal.WithLabelValues(status).Inc()
}

// Handler returns the /metrics handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes the metrics gathered by g at /metrics on addr until ctx is
// done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: constants.MetricsReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		dlog.Common.Info("Serving metrics", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.MetricsShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
