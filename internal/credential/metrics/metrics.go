package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential engine. Counters are
// labeled by kind so one registry covers all four credential families.
type Metrics struct {
	Issued         *prometheus.CounterVec
	Redeemed       *prometheus.CounterVec
	Revoked        *prometheus.CounterVec
	RedeemFailures *prometheus.CounterVec
	RedeemDuration prometheus.Histogram
}

// New creates a Metrics instance with all credential metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onward_credentials_issued_total",
			Help: "Total credentials issued",
		}, []string{"kind"}),
		Redeemed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onward_credentials_redeemed_total",
			Help: "Total credentials successfully redeemed",
		}, []string{"kind"}),
		Revoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onward_credentials_revoked_total",
			Help: "Total credentials administratively revoked",
		}, []string{"kind"}),
		RedeemFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onward_credential_redeem_failures_total",
			Help: "Redemption failures by reason (not_found, expired, already_used)",
		}, []string{"kind", "reason"}),
		RedeemDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onward_credential_redeem_duration_seconds",
			Help:    "Duration of redeem operations (login critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRedeem records the duration of a redeem operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRedeem(start time.Time) {
	m.RedeemDuration.Observe(time.Since(start).Seconds())
}
