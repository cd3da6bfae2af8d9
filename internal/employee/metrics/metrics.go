package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the employee engine.
type Metrics struct {
	Created       prometheus.Counter
	Patched       prometheus.Counter
	Deleted       prometheus.Counter
	PatchDuration prometheus.Histogram
	ListDuration  prometheus.Histogram
}

// New creates a Metrics instance with all employee metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onward_employees_created_total",
			Help: "Total employees created",
		}),
		Patched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onward_employees_patched_total",
			Help: "Total partial updates applied to employees",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onward_employees_deleted_total",
			Help: "Total employees deleted",
		}),
		PatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onward_employee_patch_duration_seconds",
			Help:    "Duration of employee partial updates",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onward_employee_list_duration_seconds",
			Help:    "Duration of employee list queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObservePatch records the duration of a patch operation.
func (m *Metrics) ObservePatch(start time.Time) {
	m.PatchDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a list query.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
