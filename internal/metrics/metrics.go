// Package metrics provides Prometheus metrics for the sync coordinator and
// the maintenance jobs.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
)

// SyncMetrics is safe to use as a nil pointer; every method is then a no-op.
type SyncMetrics struct {
	// Labels: operation, result (ok, error)
	LocalWrites *prometheus.CounterVec

	// Labels: operation, outcome (ok, not_found, conflict, auth_required, network, validation, error)
	RemoteOps *prometheus.CounterVec

	// Labels: outcome
	AutoSyncRuns *prometheus.CounterVec

	UploadQueueDepth prometheus.Gauge

	TombstonesPurged prometheus.Counter
}

// NewSyncMetrics registers the metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		LocalWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playground",
				Subsystem: "local",
				Name:      "writes_total",
				Help:      "Total number of local store writes by operation and result",
			},
			[]string{"operation", "result"},
		),
		RemoteOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playground",
				Subsystem: "remote",
				Name:      "operations_total",
				Help:      "Total number of remote store calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		AutoSyncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playground",
				Subsystem: "sync",
				Name:      "autosync_runs_total",
				Help:      "Total number of auto-sync-on-login runs by outcome",
			},
			[]string{"outcome"},
		),
		UploadQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "playground",
				Subsystem: "sync",
				Name:      "upload_queue_depth",
				Help:      "Number of project snapshots waiting for upload",
			},
		),
		TombstonesPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "playground",
				Subsystem: "remote",
				Name:      "tombstones_purged_total",
				Help:      "Total number of soft-deleted remote rows removed by maintenance",
			},
		),
	}
}

// Outcome maps an error onto a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func (m *SyncMetrics) LocalWrite(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LocalWrites.WithLabelValues(operation, result).Inc()
}

func (m *SyncMetrics) RemoteOp(operation string, err error) {
	if m == nil {
		return
	}
	m.RemoteOps.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *SyncMetrics) AutoSync(err error) {
	if m == nil {
		return
	}
	m.AutoSyncRuns.WithLabelValues(Outcome(err)).Inc()
}

func (m *SyncMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.UploadQueueDepth.Set(float64(n))
}

func (m *SyncMetrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TombstonesPurged.Add(float64(n))
}
