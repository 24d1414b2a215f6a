package metrics

import (
	"eduplatform/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		promoCodesTotal,
		promoRemainingUses,
		activeTrialsTotal,
	)
}

var (
	promoCodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promo_codes_total",
			Help: "Current number of promo codes by state.",
		},
		[]string{"state"}, // 'active', 'inactive', 'expired', 'exhausted'
	)

	promoRemainingUses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promo_remaining_uses",
			Help: "Sum of remaining uses across redeemable promo codes.",
		},
	)

	activeTrialsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promo_active_trials",
			Help: "Users whose promo trial has not expired yet.",
		},
	)
)

func SetPromoCodesTotal(counts map[model.PromoCodeState]int) {
	states := []model.PromoCodeState{
		model.PromoCodeStateActive,
		model.PromoCodeStateInactive,
		model.PromoCodeStateExpired,
		model.PromoCodeStateExhausted,
	}
	// absent states are reported as zero so a drained state does not keep its old value
	for _, s := range states {
		promoCodesTotal.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

func SetPromoRemainingUses(n int) { promoRemainingUses.Set(float64(n)) }

func SetActiveTrials(n int) { activeTrialsTotal.Set(float64(n)) }
