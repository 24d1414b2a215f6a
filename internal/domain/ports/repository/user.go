package repository

import (
	"context"
	"time"

	"eduplatform/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// ApplyGrant writes the redemption fields only if the user has never
	// redeemed a code. It returns domain.ErrConditionNotMet otherwise,
	// including when the user does not exist.
	ApplyGrant(ctx context.Context, tx Tx, g *model.RedemptionGrant) error
	CountActiveTrials(ctx context.Context, tx Tx, now time.Time) (int, error)
}
