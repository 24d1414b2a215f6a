//go:build !integration

package postgres

import (
	"context"
	"time"

	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
	red "eduplatform/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPromoCodeRepo mocks the database repository that the decorator wraps.
type mockInnerPromoCodeRepo struct {
	FindByCodeFunc     func(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error)
	IncrementUsageFunc func(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.PromoCode, error)
	CreateFunc         func(ctx context.Context, tx repository.Tx, p *model.PromoCode) error
	SetActiveFunc      func(ctx context.Context, tx repository.Tx, code string, active bool) (*model.PromoCode, error)
}

func (m *mockInnerPromoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	return m.FindByCodeFunc(ctx, tx, code)
}
func (m *mockInnerPromoCodeRepo) IncrementUsage(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.PromoCode, error) {
	return m.IncrementUsageFunc(ctx, tx, code, now)
}
func (m *mockInnerPromoCodeRepo) Create(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	return m.CreateFunc(ctx, tx, p)
}
func (m *mockInnerPromoCodeRepo) SetActive(ctx context.Context, tx repository.Tx, code string, active bool) (*model.PromoCode, error) {
	return m.SetActiveFunc(ctx, tx, code, active)
}
func (m *mockInnerPromoCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.PromoCode, error) {
	return nil, nil
}
func (m *mockInnerPromoCodeRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (map[model.PromoCodeState]int, error) {
	return nil, nil
}
func (m *mockInnerPromoCodeRepo) TotalRemainingUses(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	return 0, nil
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc        func(ctx context.Context, keys ...string) error
	IncrWindowFunc func(ctx context.Context, key string, window time.Duration) (int64, error)
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.IncrWindowFunc(ctx, key, window)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }
