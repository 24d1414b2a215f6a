package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Redemption is the append-only ledger entry of a successful redemption.
type Redemption struct {
	ID             string // ULID, sortable by redemption time
	UserID         string
	PromoCodeID    string
	Code           string
	FreeDays       int
	TrialExpiresAt time.Time
	Restrictions   Restrictions
	RedeemedAt     time.Time
}

func NewRedemption(grant *RedemptionGrant, code *PromoCode, now time.Time) *Redemption {
	return &Redemption{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		UserID:         grant.UserID,
		PromoCodeID:    code.ID,
		Code:           code.Code,
		FreeDays:       code.FreeDays,
		TrialExpiresAt: grant.TrialExpiresAt,
		Restrictions:   grant.Restrictions,
		RedeemedAt:     now,
	}
}
