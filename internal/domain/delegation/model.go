package delegation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusExpired  Status = "Expired"
	StatusLocked   Status = "Locked"
)

const (
	maxNicknameLength = 20
	dateLayout        = "2006-01-02"
)

var validDataSources = map[string]bool{
	"Immunization": true, "Medication": true, "Laboratory": true, "Covid19TestResult": true,
	"HealthVisit": true, "ClinicalDocument": true, "DiagnosticImaging": true,
	"SpecialAuthority": true, "Note": true, "HospitalVisit": true, "BcCancerScreening": true,
}

// Delegation is an invitation from a resource owner to share records. Once
// accepted, ProfileHdid holds the delegate.
type Delegation struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	ResourceOwnerHdid string     `db:"resource_owner_hdid" json:"resource_owner_hdid"`
	Nickname          string     `db:"nickname" json:"nickname"`
	DataSources       []string   `db:"data_sources" json:"data_sources"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Status            Status     `db:"status" json:"status"`
	SharingCodeHash   string     `db:"sharing_code_hash" json:"-"`
	FailedAttempts    int        `db:"failed_attempts" json:"failed_attempts"`
	ProfileHdid       string     `db:"profile_hdid" json:"profile_hdid,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// expiredAt reports whether the expiry date lies before now's day.
func (d *Delegation) expiredAt(now time.Time) bool {
	if d.ExpiryDate == nil {
		return false
	}
	y, m, day := now.Date()
	return d.ExpiryDate.Before(time.Date(y, m, day, 0, 0, 0, 0, now.Location()))
}

// EffectiveStatus shows a lapsed pending invitation as Expired.
func (d *Delegation) EffectiveStatus(now time.Time) Status {
	if d.Status == StatusPending && d.expiredAt(now) {
		return StatusExpired
	}
	return d.Status
}

type CreateRequest struct {
	Nickname    string   `json:"nickname" validate:"required,max=20"`
	ExpiryDate  string   `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	DataSources []string `json:"data_sources" validate:"required,min=1"`
}

// CreateResponse carries the sharing code. It is only ever returned here.
type CreateResponse struct {
	DelegationID uuid.UUID `json:"delegation_id"`
	SharingCode  string    `json:"sharing_code"`
}

type AssociateRequest struct {
	DelegationID uuid.UUID `json:"delegation_id" validate:"required"`
	SharingCode  string    `json:"sharing_code" validate:"required,len=6"`
}

// ExpiryReport counts what one sweep changed.
type ExpiryReport struct {
	Invitations int64 `json:"invitations"`
	Grants      int64 `json:"grants"`
}
