package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/repository"
	"eduplatform/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PromoAdminUseCase = (*promoAdminUC)(nil)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NewPromoCodeInput describes a promo code to create. Nil restriction
// pointers leave that axis unrestricted.
type NewPromoCodeInput struct {
	Code        string
	FreeDays    int
	MaxUses     int
	ExpiresAt   *time.Time
	ContentType *string
	Level       *string
	Language    *string
	Description string
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Created int
	Skipped int // already existed
	Failed  []string
}

// PromoAdminUseCase is the operator-facing management surface.
type PromoAdminUseCase interface {
	CreatePromoCode(ctx context.Context, in NewPromoCodeInput) (*model.PromoCode, error)
	GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error)
	ListPromoCodes(ctx context.Context, offset, limit int) ([]*model.PromoCode, error)
	// SetActive is the kill switch. It never touches usage counters.
	SetActive(ctx context.Context, code string, active bool) (*model.PromoCode, error)
	ListRedemptions(ctx context.Context, code string, limit int) ([]*model.Redemption, error)
	ImportPromoCodes(ctx context.Context, in []NewPromoCodeInput) (*ImportReport, error)
	UpsertUser(ctx context.Context, id, email string) (*model.User, error)
}

type promoAdminUC struct {
	codes       repository.PromoCodeRepository
	users       repository.UserRepository
	redemptions repository.RedemptionRepository
	log         *zerolog.Logger
}

func NewPromoAdminUseCase(
	codes repository.PromoCodeRepository,
	users repository.UserRepository,
	redemptions repository.RedemptionRepository,
	logger *zerolog.Logger,
) *promoAdminUC {
	l := logger.With().Str("component", "PromoAdminUC").Logger()
	return &promoAdminUC{codes: codes, users: users, redemptions: redemptions, log: &l}
}

func (uc *promoAdminUC) CreatePromoCode(ctx context.Context, in NewPromoCodeInput) (*model.PromoCode, error) {
	defer logging.TraceDuration(uc.log, "PromoAdminUC.CreatePromoCode")()

	r := model.NewRestrictions(in.ContentType, in.Level, in.Language)
	var expiresAt *time.Time
	if in.ExpiresAt != nil {
		t := in.ExpiresAt.UTC().Truncate(time.Microsecond)
		expiresAt = &t
	}
	p, err := model.NewPromoCode(in.Code, in.FreeDays, in.MaxUses, expiresAt, r, in.Description)
	if err != nil {
		return nil, fmt.Errorf("%w: code must be non-empty, free_days and max_uses must be positive", err)
	}
	p.CreatedAt = p.CreatedAt.Truncate(time.Microsecond)
	p.UpdatedAt = p.CreatedAt

	if err := uc.codes.Create(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	uc.log.Info().Str("code", p.Code).Int("free_days", p.FreeDays).Int("max_uses", p.MaxUses).Msg("promo code created")
	return p, nil
}

func (uc *promoAdminUC) GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	code = model.CanonicalCode(code)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.codes.FindByCode(ctx, repository.NoTX, code)
}

func (uc *promoAdminUC) ListPromoCodes(ctx context.Context, offset, limit int) ([]*model.PromoCode, error) {
	if offset < 0 {
		offset = 0
	}
	return uc.codes.List(ctx, repository.NoTX, offset, clampLimit(limit))
}

func (uc *promoAdminUC) SetActive(ctx context.Context, code string, active bool) (*model.PromoCode, error) {
	code = model.CanonicalCode(code)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	p, err := uc.codes.SetActive(ctx, repository.NoTX, code, active)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("code", code).Bool("active", active).Msg("promo code kill switch changed")
	return p, nil
}

func (uc *promoAdminUC) ListRedemptions(ctx context.Context, code string, limit int) ([]*model.Redemption, error) {
	code = model.CanonicalCode(code)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.redemptions.ListByCode(ctx, repository.NoTX, code, clampLimit(limit))
}

// ImportPromoCodes creates codes one by one; existing codes are skipped,
// never updated, so re-running an import is harmless.
func (uc *promoAdminUC) ImportPromoCodes(ctx context.Context, in []NewPromoCodeInput) (*ImportReport, error) {
	defer logging.TraceDuration(uc.log, "PromoAdminUC.ImportPromoCodes")()

	rep := &ImportReport{}
	for _, item := range in {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		_, err := uc.CreatePromoCode(ctx, item)
		switch {
		case err == nil:
			rep.Created++
		case errors.Is(err, domain.ErrAlreadyExists):
			rep.Skipped++
		case errors.Is(err, domain.ErrInvalidArgument):
			rep.Failed = append(rep.Failed, fmt.Sprintf("%s: %v", item.Code, err))
		default:
			return rep, err
		}
	}
	uc.log.Info().Int("created", rep.Created).Int("skipped", rep.Skipped).Int("failed", len(rep.Failed)).Msg("promo import finished")
	return rep, nil
}

func (uc *promoAdminUC) UpsertUser(ctx context.Context, id, email string) (*model.User, error) {
	u, err := model.NewUser(id, email)
	if err != nil {
		return nil, err
	}
	if err := uc.users.Save(ctx, repository.NoTX, u); err != nil {
		return nil, err
	}
	return u, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
