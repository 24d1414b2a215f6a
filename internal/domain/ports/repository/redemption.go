package repository

import (
	"context"

	"eduplatform/internal/domain/model"
)

// RedemptionRepository stores the append-only redemption ledger.
type RedemptionRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Redemption) error
	ListByCode(ctx context.Context, tx Tx, code string, limit int) ([]*model.Redemption, error)
}
