package undeletable

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for scope and lifecycle operations
type Metrics struct {
	operations *prometheus.CounterVec
	rows       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors on registry.
// If registry is nil, uses the default Prometheus registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "undeletable_operations_total",
				Help: "Total number of operations by entity, operation and outcome",
			},
			[]string{"entity", "operation", "outcome"},
		),

		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "undeletable_rows_affected_total",
				Help: "Rows returned or changed by operations",
			},
			[]string{"entity", "operation"},
		),

		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "undeletable_operation_duration_seconds",
				Help: "Operation duration in seconds",
				Buckets: []float64{
					0.0005, // 0.5ms
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"entity", "operation"},
		),
	}
}

func (m *Metrics) observe(entity, operation string, rows int64, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(entity, operation, outcome).Inc()
	if rows > 0 {
		m.rows.WithLabelValues(entity, operation).Add(float64(rows))
	}
	m.duration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}
