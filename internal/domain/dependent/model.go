package dependent

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReasonCode string

const (
	ReasonGuardian   ReasonCode = "Guardian"
	ReasonDelegation ReasonCode = "Delegation"
)

// ResourceDelegate grants ProfileHdid access to ResourceOwnerHdid's records.
type ResourceDelegate struct {
	ResourceOwnerHdid string     `db:"resource_owner_hdid" json:"resource_owner_hdid"`
	ProfileHdid       string     `db:"profile_hdid" json:"profile_hdid"`
	ReasonCode        ReasonCode `db:"reason_code" json:"reason_code"`
	DelegationID      *uuid.UUID `db:"delegation_id" json:"delegation_id,omitempty"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// ExpiredAt reports whether the grant has lapsed. The expiry date is the last
// day of access.
func (d *ResourceDelegate) ExpiredAt(now time.Time) bool {
	if d.ExpiryDate == nil {
		return false
	}
	return d.ExpiryDate.Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type AddDependentRequest struct {
	PHN         string `json:"phn" validate:"required,phn"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

type DependentModel struct {
	OwnerHdid   string     `json:"owner_hdid"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth string     `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	PHN         string     `json:"phn"`
	ReasonCode  ReasonCode `json:"reason_code"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// MaskPHN hides all but the last four digits.
func MaskPHN(phn string) string {
	if len(phn) <= 4 {
		return phn
	}
	return strings.Repeat("*", len(phn)-4) + phn[len(phn)-4:]
}
