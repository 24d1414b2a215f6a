// File: internal/infra/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		promoValidationsTotal,
		promoRedemptionsTotal,
		promoRedeemLatency,
	)
}

var (
	promoValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_validations_total",
			Help: "Promo code validations by outcome kind.",
		},
		[]string{"kind"}, // 'ok', 'not_found', 'expired', ...
	)

	promoRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Promo code redemptions by outcome kind.",
		},
		[]string{"kind"},
	)

	promoRedeemLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promo_redeem_duration_seconds",
			Help:    "Latency of the redeem transaction.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ObserveValidation records one validation; kind is "ok" on success.
func ObserveValidation(kind string) {
	promoValidationsTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveRedemption(kind string, elapsed time.Duration) {
	promoRedemptionsTotal.WithLabelValues(norm(kind)).Inc()
	promoRedeemLatency.Observe(elapsed.Seconds())
}
