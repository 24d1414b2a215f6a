package model

import (
	"strings"
	"time"

	"eduplatform/internal/domain"
)

// User is the platform account a promo grant is materialised on.
// Identity is established upstream; ID is opaque here.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	Grant     *RedemptionGrant // nil until the user redeems a code
}

func NewUser(id, email string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        id,
		Email:     strings.TrimSpace(email),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (u *User) IsZero() bool      { return u == nil || u.ID == "" }
func (u *User) HasRedeemed() bool { return u != nil && u.Grant != nil }

// RedemptionGrant is the entitlement written once per user by a successful
// redemption. Restrictions are a snapshot of the code at redemption time.
type RedemptionGrant struct {
	UserID         string
	PromoCodeUsed  string
	TrialExpiresAt time.Time
	Restrictions   Restrictions
}

// NewRedemptionGrant freezes TrialExpiresAt at now + FreeDays.
func NewRedemptionGrant(userID string, code *PromoCode, now time.Time) (*RedemptionGrant, error) {
	if userID == "" || code == nil || code.FreeDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &RedemptionGrant{
		UserID:         userID,
		PromoCodeUsed:  code.Code,
		TrialExpiresAt: now.Add(time.Duration(code.FreeDays) * 24 * time.Hour),
		Restrictions:   code.Restrictions,
	}, nil
}

func (g *RedemptionGrant) TrialActive(now time.Time) bool {
	return g != nil && now.Before(g.TrialExpiresAt)
}
