package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *UserProfile) error
	GetByHdid(ctx context.Context, hdid string) (*UserProfile, error)
	// Update writes p when its version still matches and bumps p.Version.
	Update(ctx context.Context, p *UserProfile) error
	UpdateLastLogin(ctx context.Context, hdid string, at time.Time) error
}

type TermsRepository interface {
	GetActive(ctx context.Context, now time.Time) (*LegalAgreement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*LegalAgreement, error)
}

type PreferenceRepository interface {
	ListByHdid(ctx context.Context, hdid string) ([]*UserPreference, error)
	Create(ctx context.Context, p *UserPreference) error
	Update(ctx context.Context, p *UserPreference) error
}
