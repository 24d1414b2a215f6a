package model

import (
	"encoding/json"
	"strings"
)

// AllContentDescription is the access description of a grant without restrictions.
const AllContentDescription = "Access to all content"

// Restriction is one optional access axis. The zero value is unrestricted.
type Restriction struct {
	Value string
	Set   bool
}

// RestrictTo builds a set restriction. Blank values collapse to unrestricted.
func RestrictTo(v string) Restriction {
	v = strings.TrimSpace(v)
	if v == "" {
		return Restriction{}
	}
	return Restriction{Value: v, Set: true}
}

// RestrictionFromPtr maps a nullable column to a Restriction.
func RestrictionFromPtr(p *string) Restriction {
	if p == nil {
		return Restriction{}
	}
	return RestrictTo(*p)
}

// Ptr returns nil for an unset axis, for use as a nullable SQL argument.
func (r Restriction) Ptr() *string {
	if !r.Set {
		return nil
	}
	v := r.Value
	return &v
}

func (r Restriction) MarshalJSON() ([]byte, error) {
	if !r.Set {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Restriction) UnmarshalJSON(b []byte) error {
	var p *string
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = RestrictionFromPtr(p)
	return nil
}

// Restrictions narrows what a promo grant unlocks. Each axis is independent;
// an unset axis means unrestricted along it.
type Restrictions struct {
	ContentType Restriction `json:"content_type"`
	Level       Restriction `json:"level"`
	Language    Restriction `json:"language"`
}

func NewRestrictions(contentType, level, language *string) Restrictions {
	return Restrictions{
		ContentType: RestrictionFromPtr(contentType),
		Level:       RestrictionFromPtr(level),
		Language:    RestrictionFromPtr(language),
	}
}

func (r Restrictions) IsUnrestricted() bool {
	return !r.ContentType.Set && !r.Level.Set && !r.Language.Set
}

// Qualifiers lists the set axes in content type, level, language order.
func (r Restrictions) Qualifiers() []string {
	q := make([]string, 0, 3)
	if r.ContentType.Set {
		q = append(q, r.ContentType.Value+" content")
	}
	if r.Level.Set {
		q = append(q, r.Level.Value+" level")
	}
	if r.Language.Set {
		q = append(q, r.Language.Value+" language")
	}
	return q
}

// Describe renders the human-readable access description shown for both
// validation and redemption results.
func (r Restrictions) Describe() string {
	q := r.Qualifiers()
	if len(q) == 0 {
		return AllContentDescription
	}
	return "Access to " + strings.Join(q, ", ")
}
