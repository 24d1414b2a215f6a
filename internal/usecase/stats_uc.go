package usecase

import (
	"context"
	"time"

	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PromoStats is a point-in-time summary of promo usage.
type PromoStats struct {
	CodesByState  map[model.PromoCodeState]int
	RemainingUses int
	ActiveTrials  int
	TakenAt       time.Time
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*PromoStats, error)
}

type statsUC struct {
	codes repository.PromoCodeRepository
	users repository.UserRepository
	now   func() time.Time

	log *zerolog.Logger
}

func NewStatsUseCase(codes repository.PromoCodeRepository, users repository.UserRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{codes: codes, users: users, now: time.Now, log: logger}
}

func (s *statsUC) Snapshot(ctx context.Context) (*PromoStats, error) {
	now := s.now().UTC()
	byState, err := s.codes.CountByState(ctx, repository.NoTX, now)
	if err != nil {
		return nil, err
	}
	remaining, err := s.codes.TotalRemainingUses(ctx, repository.NoTX, now)
	if err != nil {
		return nil, err
	}
	trials, err := s.users.CountActiveTrials(ctx, repository.NoTX, now)
	if err != nil {
		return nil, err
	}
	return &PromoStats{
		CodesByState:  byState,
		RemainingUses: remaining,
		ActiveTrials:  trials,
		TakenAt:       now,
	}, nil
}
