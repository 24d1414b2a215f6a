package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/adapter"
	"eduplatform/internal/domain/ports/repository"
	"eduplatform/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PromoUseCase = (*promoUC)(nil)

// ValidationResult is the advisory outcome of Validate.
type ValidationResult struct {
	Code              string
	Description       string
	FreeDays          int
	RemainingUses     int
	AccessDescription string
	Restrictions      model.Restrictions
}

// RedemptionResult describes the grant applied by Redeem.
type RedemptionResult struct {
	RedemptionID      string
	Code              string
	UserID            string
	FreeDays          int
	TrialExpiresAt    time.Time
	AccessDescription string
	Restrictions      model.Restrictions
}

// PromoUseCase validates and redeems promo codes.
// Every returned error is a *domain.PromoError.
type PromoUseCase interface {
	// Validate is read-only and reserves nothing.
	Validate(ctx context.Context, code string) (*ValidationResult, error)
	// Redeem re-checks every condition and applies the grant in one transaction.
	Redeem(ctx context.Context, code, userID string) (*RedemptionResult, error)
}

type PromoOption func(*promoUC)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) PromoOption {
	return func(uc *promoUC) { uc.now = now }
}

// WithDevLogging disables redaction of codes and user ids in logs.
func WithDevLogging(dev bool) PromoOption {
	return func(uc *promoUC) { uc.dev = dev }
}

type promoUC struct {
	codes       repository.PromoCodeRepository
	users       repository.UserRepository
	redemptions repository.RedemptionRepository
	tm          repository.TransactionManager
	notifier    adapter.OperatorNotifier
	log         *zerolog.Logger
	now         func() time.Time
	dev         bool
}

func NewPromoUseCase(
	codes repository.PromoCodeRepository,
	users repository.UserRepository,
	redemptions repository.RedemptionRepository,
	tm repository.TransactionManager,
	notifier adapter.OperatorNotifier,
	logger *zerolog.Logger,
	opts ...PromoOption,
) *promoUC {
	l := logger.With().Str("component", "PromoUC").Logger()
	uc := &promoUC{
		codes:       codes,
		users:       users,
		redemptions: redemptions,
		tm:          tm,
		notifier:    notifier,
		log:         &l,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// clock returns the current time at database precision so the value handed
// back to callers is exactly the one stored.
func (uc *promoUC) clock() time.Time {
	return uc.now().UTC().Truncate(time.Microsecond)
}

func (uc *promoUC) Validate(ctx context.Context, code string) (*ValidationResult, error) {
	defer logging.TraceDuration(uc.log, "PromoUC.Validate")()

	code = model.CanonicalCode(code)
	if code == "" {
		return nil, domain.ErrPromoInvalidCode
	}

	p, err := uc.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPromoNotFound
		}
		l := logging.With(ctx, uc.log)
		l.Error().Err(err).Str("code", logging.Redact(code, uc.dev)).Msg("promo lookup failed")
		return nil, domain.StoreUnavailable(err)
	}
	if err := p.CheckEligibility(uc.clock()); err != nil {
		return nil, err
	}

	return &ValidationResult{
		Code:              p.Code,
		Description:       p.Description,
		FreeDays:          p.FreeDays,
		RemainingUses:     p.RemainingUses(),
		AccessDescription: p.Restrictions.Describe(),
		Restrictions:      p.Restrictions,
	}, nil
}

func (uc *promoUC) Redeem(ctx context.Context, code, userID string) (*RedemptionResult, error) {
	defer logging.TraceDuration(uc.log, "PromoUC.Redeem")()

	code = model.CanonicalCode(code)
	userID = strings.TrimSpace(userID)
	if code == "" {
		return nil, domain.ErrPromoInvalidCode
	}
	if userID == "" {
		return nil, domain.ErrPromoInvalidUser
	}

	now := uc.clock()
	var (
		res       *RedemptionResult
		exhausted bool
	)

	// Capacity and the one-redemption-per-user rule are both enforced by
	// conditional UPDATEs, so READ COMMITTED with row locks is enough here.
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := uc.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		p, err := uc.codes.IncrementUsage(ctx, tx, code, now)
		if err != nil {
			if errors.Is(err, domain.ErrConditionNotMet) {
				return uc.codeRejection(ctx, tx, code, now)
			}
			return fmt.Errorf("increment usage: %w", err)
		}

		grant, err := model.NewRedemptionGrant(userID, p, now)
		if err != nil {
			return err
		}
		if err := uc.users.ApplyGrant(ctx, tx, grant); err != nil {
			if errors.Is(err, domain.ErrConditionNotMet) {
				return uc.userRejection(ctx, tx, userID)
			}
			return fmt.Errorf("apply grant: %w", err)
		}

		r := model.NewRedemption(grant, p, now)
		if err := uc.redemptions.Save(ctx, tx, r); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrPromoAlreadyRedeemed
			}
			return fmt.Errorf("record redemption: %w", err)
		}

		exhausted = p.RemainingUses() == 0
		res = &RedemptionResult{
			RedemptionID:      r.ID,
			Code:              p.Code,
			UserID:            userID,
			FreeDays:          p.FreeDays,
			TrialExpiresAt:    grant.TrialExpiresAt,
			AccessDescription: grant.Restrictions.Describe(),
			Restrictions:      grant.Restrictions,
		}
		return nil
	})

	l := logging.With(logging.WithUserID(ctx, logging.Redact(userID, uc.dev)), uc.log)
	if err != nil {
		var pe *domain.PromoError
		if errors.As(err, &pe) && pe.Kind != domain.KindStoreUnavailable {
			l.Info().Str("code", logging.Redact(code, uc.dev)).Str("kind", string(pe.Kind)).Msg("redemption rejected")
			return nil, pe
		}
		l.Error().Err(err).Str("code", logging.Redact(code, uc.dev)).Msg("redemption failed")
		if pe != nil {
			return nil, pe
		}
		return nil, domain.StoreUnavailable(err)
	}

	if inv, ok := uc.codes.(repository.PromoCodeCacheInvalidator); ok {
		inv.Invalidate(ctx, res.Code)
	}
	l.Info().Str("code", logging.Redact(code, uc.dev)).Str("redemption_id", res.RedemptionID).Msg("promo code redeemed")
	uc.notifyRedeemed(ctx, res, exhausted)
	return res, nil
}

// codeRejection explains why the conditional increment matched nothing by
// re-reading the row inside the same transaction.
func (uc *promoUC) codeRejection(ctx context.Context, tx repository.Tx, code string, now time.Time) error {
	p, err := uc.codes.FindByCode(ctx, tx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPromoNotFound
		}
		return fmt.Errorf("reload promo code: %w", err)
	}
	if err := p.CheckEligibility(now); err != nil {
		return err
	}
	// Eligible again on re-read: the kill switch flipped between the two
	// statements. Report it as transient so the caller retries.
	return domain.StoreUnavailable(fmt.Errorf("promo code %s changed during redemption", code))
}

func (uc *promoUC) userRejection(ctx context.Context, tx repository.Tx, userID string) error {
	u, err := uc.users.FindByID(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPromoUserNotFound
		}
		return fmt.Errorf("reload user: %w", err)
	}
	if u.HasRedeemed() {
		return domain.ErrPromoAlreadyRedeemed
	}
	return domain.StoreUnavailable(fmt.Errorf("grant for user %s not applied", userID))
}

func (uc *promoUC) notifyRedeemed(ctx context.Context, res *RedemptionResult, exhausted bool) {
	if uc.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Promo %s redeemed: %d free days, %s", res.Code, res.FreeDays, res.AccessDescription)
	if exhausted {
		msg += fmt.Sprintf("\nPromo %s has reached its usage limit", res.Code)
	}
	if err := uc.notifier.Notify(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Msg("operator notification not delivered")
	}
}
