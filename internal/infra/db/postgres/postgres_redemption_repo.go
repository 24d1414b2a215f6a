package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*PostgresRedemptionRepo)(nil)

type PostgresRedemptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRedemptionRepo(pool *pgxpool.Pool) *PostgresRedemptionRepo {
	return &PostgresRedemptionRepo{pool: pool}
}

// Save appends a ledger row. The UNIQUE(user_id) constraint surfaces as
// domain.ErrAlreadyExists.
func (r *PostgresRedemptionRepo) Save(ctx context.Context, tx repository.Tx, rd *model.Redemption) error {
	const q = `
INSERT INTO promo_redemptions (
  id, user_id, promo_code_id, code, free_days, trial_expires_at,
  content_type_restriction, level_restriction, language_restriction, redeemed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q,
		rd.ID, rd.UserID, rd.PromoCodeID, rd.Code, rd.FreeDays, rd.TrialExpiresAt,
		rd.Restrictions.ContentType.Ptr(), rd.Restrictions.Level.Ptr(), rd.Restrictions.Language.Ptr(),
		rd.RedeemedAt,
	)
	return classify("save redemption", err)
}

func (r *PostgresRedemptionRepo) ListByCode(ctx context.Context, tx repository.Tx, code string, limit int) ([]*model.Redemption, error) {
	const q = `
SELECT id, user_id, promo_code_id, code, free_days, trial_expires_at,
       content_type_restriction, level_restriction, language_restriction, redeemed_at
  FROM promo_redemptions
 WHERE code = $1
 ORDER BY id DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, code, limit)
	if err != nil {
		return nil, classify("list redemptions", err)
	}
	defer rows.Close()

	var out []*model.Redemption
	for rows.Next() {
		var (
			rd            model.Redemption
			ct, lvl, lang *string
		)
		if err := rows.Scan(&rd.ID, &rd.UserID, &rd.PromoCodeID, &rd.Code, &rd.FreeDays, &rd.TrialExpiresAt,
			&ct, &lvl, &lang, &rd.RedeemedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		rd.Restrictions = model.NewRestrictions(ct, lvl, lang)
		out = append(out, &rd)
	}
	return out, classify("list redemptions", rows.Err())
}
