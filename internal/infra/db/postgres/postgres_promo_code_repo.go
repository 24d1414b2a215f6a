package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*PostgresPromoCodeRepo)(nil)

type PostgresPromoCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPromoCodeRepo(pool *pgxpool.Pool) *PostgresPromoCodeRepo {
	return &PostgresPromoCodeRepo{pool: pool}
}

const promoCodeColumns = `id, code, description, active, expires_at, max_uses, current_uses, free_days,
       content_type_restriction, level_restriction, language_restriction, created_at, updated_at`

// redeemable is the SQL form of PromoCode.CheckEligibility, with $2 as now.
const redeemable = `active AND (expires_at IS NULL OR expires_at >= $2) AND current_uses < max_uses`

func scanPromoCode(row pgx.Row) (*model.PromoCode, error) {
	var (
		p             model.PromoCode
		ct, lvl, lang *string
	)
	if err := row.Scan(
		&p.ID, &p.Code, &p.Description, &p.Active, &p.ExpiresAt, &p.MaxUses, &p.CurrentUses, &p.FreeDays,
		&ct, &lvl, &lang, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Restrictions = model.NewRestrictions(ct, lvl, lang)
	return &p, nil
}

func (r *PostgresPromoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	q := `SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	p, err := scanPromoCode(row)
	if err != nil {
		return nil, classify("find promo code", err)
	}
	return p, nil
}

// IncrementUsage is the compare-and-increment at the heart of redemption.
// A concurrent redeemer of the same code blocks on the row lock and, once it
// is released, PostgreSQL re-checks the WHERE clause against the new version,
// so current_uses can never pass max_uses.
func (r *PostgresPromoCodeRepo) IncrementUsage(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.PromoCode, error) {
	q := `
UPDATE promo_codes
   SET current_uses = current_uses + 1, updated_at = $2
 WHERE code = $1 AND ` + redeemable + `
RETURNING ` + promoCodeColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, code, now)
	if err != nil {
		return nil, err
	}
	p, err := scanPromoCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConditionNotMet
		}
		return nil, classify("increment promo usage", err)
	}
	return p, nil
}

func (r *PostgresPromoCodeRepo) Create(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (
  id, code, description, active, expires_at, max_uses, current_uses, free_days,
  content_type_restriction, level_restriction, language_restriction, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Code, p.Description, p.Active, p.ExpiresAt, p.MaxUses, p.CurrentUses, p.FreeDays,
		p.Restrictions.ContentType.Ptr(), p.Restrictions.Level.Ptr(), p.Restrictions.Language.Ptr(),
		p.CreatedAt, p.UpdatedAt,
	)
	return classify("create promo code", err)
}

func (r *PostgresPromoCodeRepo) SetActive(ctx context.Context, tx repository.Tx, code string, active bool) (*model.PromoCode, error) {
	q := `
UPDATE promo_codes SET active = $2, updated_at = NOW()
 WHERE code = $1
RETURNING ` + promoCodeColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, code, active)
	if err != nil {
		return nil, err
	}
	p, err := scanPromoCode(row)
	if err != nil {
		return nil, classify("set promo active", err)
	}
	return p, nil
}

func (r *PostgresPromoCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.PromoCode, error) {
	q := `SELECT ` + promoCodeColumns + ` FROM promo_codes ORDER BY created_at DESC, code LIMIT $1 OFFSET $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit, offset)
	if err != nil {
		return nil, classify("list promo codes", err)
	}
	defer rows.Close()

	out := make([]*model.PromoCode, 0, limit)
	for rows.Next() {
		p, err := scanPromoCode(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, classify("list promo codes", rows.Err())
}

func (r *PostgresPromoCodeRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (map[model.PromoCodeState]int, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE NOT active),
  COUNT(*) FILTER (WHERE active AND expires_at IS NOT NULL AND expires_at < $1),
  COUNT(*) FILTER (WHERE active AND (expires_at IS NULL OR expires_at >= $1) AND current_uses >= max_uses),
  COUNT(*) FILTER (WHERE active AND (expires_at IS NULL OR expires_at >= $1) AND current_uses < max_uses)
FROM promo_codes;`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return nil, err
	}
	var inactive, expired, exhausted, active int
	if err := row.Scan(&inactive, &expired, &exhausted, &active); err != nil {
		return nil, classify("count promo codes", err)
	}
	return map[model.PromoCodeState]int{
		model.PromoCodeStateInactive:  inactive,
		model.PromoCodeStateExpired:   expired,
		model.PromoCodeStateExhausted: exhausted,
		model.PromoCodeStateActive:    active,
	}, nil
}

func (r *PostgresPromoCodeRepo) TotalRemainingUses(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
SELECT COALESCE(SUM(max_uses - current_uses), 0)
  FROM promo_codes
 WHERE active AND (expires_at IS NULL OR expires_at >= $1) AND current_uses < max_uses;`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, classify("sum remaining uses", err)
	}
	return int(n), nil
}
