package model

import (
	"strings"
	"time"

	"eduplatform/internal/domain"

	"github.com/google/uuid"
)

// PromoCodeState is a coarse status used for reporting.
type PromoCodeState string

const (
	PromoCodeStateActive    PromoCodeState = "active"
	PromoCodeStateInactive  PromoCodeState = "inactive"
	PromoCodeStateExpired   PromoCodeState = "expired"
	PromoCodeStateExhausted PromoCodeState = "exhausted"
)

// PromoCode grants FreeDays of trial access when redeemed. Rows are immutable
// apart from CurrentUses and the Active kill switch.
type PromoCode struct {
	ID           string
	Code         string
	Description  string
	Active       bool
	ExpiresAt    *time.Time // nil means no expiry
	MaxUses      int
	CurrentUses  int
	FreeDays     int
	Restrictions Restrictions
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanonicalCode trims and uppercases a user-supplied code. Lookups are
// case-insensitive only through this function.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewPromoCode(code string, freeDays, maxUses int, expiresAt *time.Time, r Restrictions, description string) (*PromoCode, error) {
	code = CanonicalCode(code)
	if code == "" || freeDays <= 0 || maxUses <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &PromoCode{
		ID:           uuid.NewString(),
		Code:         code,
		Description:  strings.TrimSpace(description),
		Active:       true,
		ExpiresAt:    expiresAt,
		MaxUses:      maxUses,
		FreeDays:     freeDays,
		Restrictions: r,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *PromoCode) RemainingUses() int {
	if n := p.MaxUses - p.CurrentUses; n > 0 {
		return n
	}
	return 0
}

// IsExpired reports whether now is past ExpiresAt. The expiry instant itself is still valid.
func (p *PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// CheckEligibility runs the code-level checks in order: active, expiry, capacity.
func (p *PromoCode) CheckEligibility(now time.Time) error {
	if !p.Active {
		return domain.ErrPromoInactive
	}
	if p.IsExpired(now) {
		return domain.ErrPromoExpired
	}
	if p.CurrentUses >= p.MaxUses {
		return domain.ErrPromoCapacityExhausted
	}
	return nil
}

func (p *PromoCode) State(now time.Time) PromoCodeState {
	switch p.CheckEligibility(now) {
	case nil:
		return PromoCodeStateActive
	case domain.ErrPromoInactive:
		return PromoCodeStateInactive
	case domain.ErrPromoExpired:
		return PromoCodeStateExpired
	default:
		return PromoCodeStateExhausted
	}
}
