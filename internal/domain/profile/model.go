package profile

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the account row keyed by hdid. Email and SmsNumber only hold
// verified values.
type UserProfile struct {
	Hdid             string     `db:"hdid" json:"hdid"`
	TermsOfServiceID uuid.UUID  `db:"terms_of_service_id" json:"terms_of_service_id"`
	Email            string     `db:"email" json:"email,omitempty"`
	SmsNumber        string     `db:"sms_number" json:"sms_number,omitempty"`
	EncryptionKey    string     `db:"encryption_key" json:"-"`
	ClosedAt         *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	Version          int        `db:"version" json:"version"`
}

func (p *UserProfile) IsClosed() bool { return p.ClosedAt != nil }

type LegalAgreement struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AgreementType string    `db:"agreement_type" json:"agreement_type"`
	Text          string    `db:"legal_text" json:"content"`
	EffectiveDate time.Time `db:"effective_date" json:"effective_date"`
}

type UserPreference struct {
	Hdid      string    `db:"hdid" json:"hdid"`
	Name      string    `db:"name" json:"preference" validate:"required,max=50"`
	Value     string    `db:"value" json:"value" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	Version   int       `db:"version" json:"version"`
}

// CreateProfileRequest is the body of POST /profiles/:hdid.
type CreateProfileRequest struct {
	TermsOfServiceID uuid.UUID `json:"terms_of_service_id" validate:"required"`
	Email            string    `json:"email" validate:"omitempty,email,max=254"`
	SmsNumber        string    `json:"sms_number" validate:"omitempty,sms"`
}

type UpdateTermsRequest struct {
	TermsOfServiceID uuid.UUID `json:"terms_of_service_id" validate:"required"`
}

// UserProfileModel is what the profile endpoints return.
type UserProfileModel struct {
	Hdid                     string                     `json:"hdid"`
	TermsOfServiceID         uuid.UUID                  `json:"terms_of_service_id"`
	Email                    string                     `json:"email,omitempty"`
	IsEmailVerified          bool                       `json:"is_email_verified"`
	SmsNumber                string                     `json:"sms_number,omitempty"`
	IsSmsVerified            bool                       `json:"is_sms_verified"`
	HasTermsOfServiceUpdated bool                       `json:"has_terms_of_service_updated"`
	ClosedAt                 *time.Time                 `json:"closed_at,omitempty"`
	LastLoginAt              *time.Time                 `json:"last_login_at,omitempty"`
	Preferences              map[string]*UserPreference `json:"preferences"`
}

func toModel(p *UserProfile, prefs map[string]*UserPreference, activeTerms uuid.UUID) *UserProfileModel {
	if prefs == nil {
		prefs = map[string]*UserPreference{}
	}
	return &UserProfileModel{
		Hdid:                     p.Hdid,
		TermsOfServiceID:         p.TermsOfServiceID,
		Email:                    p.Email,
		IsEmailVerified:          p.Email != "",
		SmsNumber:                p.SmsNumber,
		IsSmsVerified:            p.SmsNumber != "",
		HasTermsOfServiceUpdated: activeTerms != uuid.Nil && p.TermsOfServiceID != activeTerms,
		ClosedAt:                 p.ClosedAt,
		LastLoginAt:              p.LastLoginAt,
		Preferences:              prefs,
	}
}
