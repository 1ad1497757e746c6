package verification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEmail Type = "Email"
	TypeSMS   Type = "SMS"
)

// MessagingVerification is one attempt to confirm an email address or sms
// number. Only the latest row per hdid and type is ever checked.
type MessagingVerification struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Hdid                 string    `db:"hdid" json:"hdid"`
	Type                 Type      `db:"verification_type" json:"verification_type"`
	Email                string    `db:"email" json:"email,omitempty"`
	InviteKey            uuid.UUID `db:"invite_key" json:"-"`
	SmsNumber            string    `db:"sms_number" json:"sms_number,omitempty"`
	SmsValidationCode    string    `db:"sms_validation_code" json:"-"`
	Validated            bool      `db:"validated" json:"validated"`
	Deleted              bool      `db:"deleted" json:"deleted"`
	VerificationAttempts int       `db:"verification_attempts" json:"verification_attempts"`
	ExpireDate           time.Time `db:"expire_date" json:"expire_date"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// secret is the value the user must echo back to verify.
func (v *MessagingVerification) secret() string {
	if v.Type == TypeSMS {
		return v.SmsValidationCode
	}
	return v.InviteKey.String()
}

type Status string

const (
	StatusVerified        Status = "Verified"
	StatusInvalid         Status = "Invalid"
	StatusExpired         Status = "Expired"
	StatusTooManyAttempts Status = "TooManyAttempts"
)

type VerificationResult struct {
	Status   Status `json:"status"`
	Verified bool   `json:"verified"`
}

type UpdateEmailRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type UpdateSmsRequest struct {
	SmsNumber string `json:"sms_number" validate:"omitempty,sms"`
}
