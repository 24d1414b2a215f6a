//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"eduplatform/internal/domain/model"
	"eduplatform/internal/usecase"

	"github.com/rs/zerolog"
)

type fakeStats struct {
	calls int32
	err   error
}

func (f *fakeStats) Snapshot(ctx context.Context) (*usecase.PromoStats, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.PromoStats{
		CodesByState:  map[model.PromoCodeState]int{model.PromoCodeStateActive: 2},
		RemainingUses: 7,
		ActiveTrials:  3,
	}, nil
}

func TestStatsWorker_CollectsUntilCancelled(t *testing.T) {
	logger := zerolog.Nop()
	stats := &fakeStats{}
	w := NewStatsWorker(10*time.Millisecond, stats, nil, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	if n := atomic.LoadInt32(&stats.calls); n < 2 {
		t.Errorf("expected an immediate and periodic collections, got %d", n)
	}
}

func TestStatsWorker_ErrorsDoNotStopTheLoop(t *testing.T) {
	logger := zerolog.Nop()
	stats := &fakeStats{err: errors.New("db down")}
	w := NewStatsWorker(5*time.Millisecond, stats, nil, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx)

	if n := atomic.LoadInt32(&stats.calls); n < 2 {
		t.Errorf("worker stopped after the first failure, calls=%d", n)
	}
}
