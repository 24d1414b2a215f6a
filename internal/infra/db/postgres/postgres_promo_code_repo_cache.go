package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
	"eduplatform/internal/infra/metrics"
	red "eduplatform/internal/infra/redis"

	"github.com/rs/zerolog"
)

var (
	_ repository.PromoCodeRepository       = (*promoCodeRepoCacheDecorator)(nil)
	_ repository.PromoCodeCacheInvalidator = (*promoCodeRepoCacheDecorator)(nil)
)

// promoCodeRepoCacheDecorator serves non-transactional FindByCode from Redis.
// Lookups inside a transaction always reach the database, so redemption never
// sees a cached row. Autocommit writes invalidate the key themselves; writes
// inside a transaction leave it to the caller to call Invalidate after
// commit, so a reader cannot re-cache the pre-commit row. A reader racing a
// write can still re-cache the old row for at most ttl, which only affects
// Validate.
type promoCodeRepoCacheDecorator struct {
	inner repository.PromoCodeRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPromoCodeRepoCacheDecorator(inner repository.PromoCodeRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PromoCodeRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	l := logger.With().Str("component", "PromoCodeCache").Logger()
	return &promoCodeRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func promoCodeKey(code string) string { return "promo_code:" + code }

func (d *promoCodeRepoCacheDecorator) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	if tx != nil {
		return d.inner.FindByCode(ctx, tx, code)
	}

	key := promoCodeKey(code)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.PromoCode
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("promo_code", "hit")
			return &p, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Msg("cache read failed")
	}

	metrics.IncCacheRequest("promo_code", "miss")
	p, err := d.inner.FindByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("cache write failed")
		}
	}
	return p, nil
}

func (d *promoCodeRepoCacheDecorator) Invalidate(ctx context.Context, code string) {
	if err := d.cache.Del(ctx, promoCodeKey(code)); err != nil {
		d.log.Warn().Err(err).Msg("cache invalidation failed")
	}
}

func (d *promoCodeRepoCacheDecorator) invalidateAutocommit(ctx context.Context, tx repository.Tx, code string) {
	if tx == nil {
		d.Invalidate(ctx, code)
	}
}

func (d *promoCodeRepoCacheDecorator) IncrementUsage(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.PromoCode, error) {
	p, err := d.inner.IncrementUsage(ctx, tx, code, now)
	if err == nil {
		d.invalidateAutocommit(ctx, tx, code)
	}
	return p, err
}

func (d *promoCodeRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	if err := d.inner.Create(ctx, tx, p); err != nil {
		return err
	}
	d.invalidateAutocommit(ctx, tx, p.Code)
	return nil
}

func (d *promoCodeRepoCacheDecorator) SetActive(ctx context.Context, tx repository.Tx, code string, active bool) (*model.PromoCode, error) {
	p, err := d.inner.SetActive(ctx, tx, code, active)
	if err == nil {
		d.invalidateAutocommit(ctx, tx, code)
	}
	return p, err
}

func (d *promoCodeRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.PromoCode, error) {
	return d.inner.List(ctx, tx, offset, limit)
}

func (d *promoCodeRepoCacheDecorator) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (map[model.PromoCodeState]int, error) {
	return d.inner.CountByState(ctx, tx, now)
}

func (d *promoCodeRepoCacheDecorator) TotalRemainingUses(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	return d.inner.TotalRemainingUses(ctx, tx, now)
}
