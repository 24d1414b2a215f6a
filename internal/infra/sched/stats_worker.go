package sched

import (
	"context"
	"time"

	"eduplatform/internal/infra/metrics"
	"eduplatform/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// PoolStatter is satisfied by *pgxpool.Pool.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// StatsWorker periodically exports promo and connection pool gauges.
type StatsWorker struct {
	interval time.Duration
	statsUC  usecase.StatsUseCase
	db       PoolStatter
	log      *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, statsUC usecase.StatsUseCase, db PoolStatter, logger *zerolog.Logger) *StatsWorker {
	l := logger.With().Str("component", "StatsWorker").Logger()
	return &StatsWorker{
		interval: interval,
		statsUC:  statsUC,
		db:       db,
		log:      &l,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.collect(ctx)
		}
	}
}

func (w *StatsWorker) collect(ctx context.Context) {
	if w.db != nil {
		metrics.SetDBPoolStats(w.db.Stat())
	}

	s, err := w.statsUC.Snapshot(ctx)
	if err != nil {
		metrics.IncJob("stats", "failed")
		w.log.Error().Err(err).Msg("stats worker error")
		return
	}
	metrics.SetPromoCodesTotal(s.CodesByState)
	metrics.SetPromoRemainingUses(s.RemainingUses)
	metrics.SetActiveTrials(s.ActiveTrials)
	metrics.IncJob("stats", "completed")
	w.log.Debug().Int("remaining_uses", s.RemainingUses).Int("active_trials", s.ActiveTrials).Msg("stats exported")
}
