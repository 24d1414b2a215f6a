package repository

import (
	"context"
	"time"

	"eduplatform/internal/domain/model"
)

// PromoCodeRepository is the port for promo code persistence.
type PromoCodeRepository interface {
	// FindByCode looks up a code by its canonical form.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)
	// IncrementUsage adds one use if the code is active, unexpired at now and
	// below its cap, returning the updated row. It returns
	// domain.ErrConditionNotMet when no row qualified.
	IncrementUsage(ctx context.Context, tx Tx, code string, now time.Time) (*model.PromoCode, error)

	// --- admin ---
	Create(ctx context.Context, tx Tx, p *model.PromoCode) error
	SetActive(ctx context.Context, tx Tx, code string, active bool) (*model.PromoCode, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.PromoCode, error)
	CountByState(ctx context.Context, tx Tx, now time.Time) (map[model.PromoCodeState]int, error)
	TotalRemainingUses(ctx context.Context, tx Tx, now time.Time) (int, error)
}

// PromoCodeCacheInvalidator is implemented by caching PromoCodeRepository
// decorators. Writes made inside a transaction are not invalidated by the
// decorator; the caller invalidates once the transaction has committed.
type PromoCodeCacheInvalidator interface {
	Invalidate(ctx context.Context, code string)
}
