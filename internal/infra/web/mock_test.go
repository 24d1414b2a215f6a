//go:build !integration

package web

import (
	"context"
	"sort"
	"sync"
	"time"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/usecase"
)

// mockAdminUC keeps promo codes in a map keyed by canonical code.
type mockAdminUC struct {
	mu          sync.Mutex
	codes       map[string]*model.PromoCode
	redemptions map[string][]*model.Redemption
	ListErr     error
}

var _ usecase.PromoAdminUseCase = (*mockAdminUC)(nil)

func newMockAdminUC() *mockAdminUC {
	return &mockAdminUC{codes: map[string]*model.PromoCode{}, redemptions: map[string][]*model.Redemption{}}
}

func (m *mockAdminUC) CreatePromoCode(_ context.Context, in usecase.NewPromoCodeInput) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := model.NewPromoCode(in.Code, in.FreeDays, in.MaxUses, in.ExpiresAt,
		model.NewRestrictions(in.ContentType, in.Level, in.Language), in.Description)
	if err != nil {
		return nil, err
	}
	if _, ok := m.codes[p.Code]; ok {
		return nil, domain.ErrAlreadyExists
	}
	m.codes[p.Code] = p
	return p, nil
}

func (m *mockAdminUC) GetPromoCode(_ context.Context, code string) (*model.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.codes[model.CanonicalCode(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockAdminUC) ListPromoCodes(_ context.Context, offset, limit int) ([]*model.PromoCode, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.PromoCode, 0, len(m.codes))
	for _, p := range m.codes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockAdminUC) SetActive(ctx context.Context, code string, active bool) (*model.PromoCode, error) {
	p, err := m.GetPromoCode(ctx, code)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Active = active
	return p, nil
}

func (m *mockAdminUC) ListRedemptions(_ context.Context, code string, _ int) ([]*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redemptions[model.CanonicalCode(code)], nil
}

func (m *mockAdminUC) ImportPromoCodes(ctx context.Context, in []usecase.NewPromoCodeInput) (*usecase.ImportReport, error) {
	rep := &usecase.ImportReport{}
	for _, item := range in {
		if _, err := m.CreatePromoCode(ctx, item); err == nil {
			rep.Created++
		}
	}
	return rep, nil
}

func (m *mockAdminUC) UpsertUser(_ context.Context, id, email string) (*model.User, error) {
	return model.NewUser(id, email)
}

type mockStatsUC struct{}

func (mockStatsUC) Snapshot(context.Context) (*usecase.PromoStats, error) {
	return &usecase.PromoStats{
		CodesByState:  map[model.PromoCodeState]int{model.PromoCodeStateActive: 2, model.PromoCodeStateExpired: 1},
		RemainingUses: 150,
		ActiveTrials:  4,
		TakenAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}
