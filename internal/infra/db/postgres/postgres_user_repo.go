package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Save upserts the account fields. Grant columns are written only by ApplyGrant.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.CreatedAt)
	return classify("save user", err)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `
SELECT id, email, created_at, promo_code_used, trial_expires_at,
       content_type_restriction, level_restriction, language_restriction
  FROM users WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, classify("find user", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u             model.User
		code          *string
		trialExpires  *time.Time
		ct, lvl, lang *string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &code, &trialExpires, &ct, &lvl, &lang); err != nil {
		return nil, err
	}
	if code != nil && trialExpires != nil {
		u.Grant = &model.RedemptionGrant{
			UserID:         u.ID,
			PromoCodeUsed:  *code,
			TrialExpiresAt: *trialExpires,
			Restrictions:   model.NewRestrictions(ct, lvl, lang),
		}
	}
	return &u, nil
}

// ApplyGrant is a compare-and-set on promo_code_used. Two concurrent
// redemptions by the same user serialize on the row lock and the loser
// re-evaluates promo_code_used IS NULL as false.
func (r *PostgresUserRepo) ApplyGrant(ctx context.Context, tx repository.Tx, g *model.RedemptionGrant) error {
	const q = `
UPDATE users
   SET promo_code_used = $2, trial_expires_at = $3,
       content_type_restriction = $4, level_restriction = $5, language_restriction = $6
 WHERE id = $1 AND promo_code_used IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		g.UserID, g.PromoCodeUsed, g.TrialExpiresAt,
		g.Restrictions.ContentType.Ptr(), g.Restrictions.Level.Ptr(), g.Restrictions.Language.Ptr(),
	)
	if err != nil {
		return classify("apply grant", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConditionNotMet
	}
	return nil
}

func (r *PostgresUserRepo) CountActiveTrials(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM users WHERE trial_expires_at > $1;`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, classify("count active trials", err)
	}
	return n, nil
}
