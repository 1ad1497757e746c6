package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/result"
)

// AgeLookup resolves a patient's age from the client registry.
type AgeLookup interface {
	Age(ctx context.Context, hdid string, now time.Time) (int, error)
}

// Verifier starts email and sms verifications for a freshly created profile.
type Verifier interface {
	UpdateEmailAddress(ctx context.Context, hdid, email, jwtEmail string) error
	UpdateSmsNumber(ctx context.Context, hdid, sms string) error
}

// EmailQueuer queues templated emails for delivery.
type EmailQueuer interface {
	QueueTemplate(ctx context.Context, to, templateID string, data map[string]string) error
}

type Options struct {
	MinPatientAge int
	WebClientURL  string
}

type Service struct {
	profiles ProfileRepository
	terms    TermsRepository
	prefs    PreferenceRepository
	ages     AgeLookup
	verifier Verifier
	emails   EmailQueuer
	events   *notify.EventPublisher
	tx       db.TxFunc
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	profiles ProfileRepository,
	terms TermsRepository,
	prefs PreferenceRepository,
	ages AgeLookup,
	emails EmailQueuer,
	events *notify.EventPublisher,
	tx db.TxFunc,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if tx == nil {
		tx = db.NoTx
	}
	return &Service{
		profiles: profiles,
		terms:    terms,
		prefs:    prefs,
		ages:     ages,
		emails:   emails,
		events:   events,
		tx:       tx,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// SetVerifier breaks the construction cycle with the verification service,
// which itself needs the profile repository.
func (s *Service) SetVerifier(v Verifier) { s.verifier = v }

// -- User Profile --

func (s *Service) CreateUserProfile(ctx context.Context, hdid string, req CreateProfileRequest, jwtEmail string) (*UserProfileModel, error) {
	if _, err := s.profiles.GetByHdid(ctx, hdid); err == nil {
		return nil, result.AlreadyExists("profile for %s already exists", hdid)
	} else if !db.IsNotFound(err) {
		return nil, result.FromDB(err, "profile")
	}

	active, err := s.terms.GetActive(ctx, s.now())
	if err != nil {
		return nil, result.FromDB(err, "terms of service")
	}
	if req.TermsOfServiceID != active.ID {
		return nil, result.Validation("terms of service %s is not the active agreement", req.TermsOfServiceID)
	}

	valid, err := s.IsValidAge(ctx, hdid)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, result.Forbidden("patient must be at least %d years old", s.opts.MinPatientAge)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &UserProfile{
		Hdid:             hdid,
		TermsOfServiceID: req.TermsOfServiceID,
		EncryptionKey:    key,
		LastLoginAt:      &now,
	}
	// The verifications join the transaction, so a failure leaves no profile
	// behind and the client can retry.
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, p); err != nil {
			return result.FromDB(err, "profile")
		}
		if s.verifier == nil {
			return nil
		}
		if req.Email != "" {
			if err := s.verifier.UpdateEmailAddress(ctx, hdid, req.Email, jwtEmail); err != nil {
				return err
			}
		}
		if req.SmsNumber != "" {
			if err := s.verifier.UpdateSmsNumber(ctx, hdid, req.SmsNumber); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("hdid", hdid).Msg("user profile created")
	return s.GetUserProfile(ctx, hdid)
}

func (s *Service) GetUserProfile(ctx context.Context, hdid string) (*UserProfileModel, error) {
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	prefs, err := s.GetUserPreferences(ctx, hdid)
	if err != nil {
		return nil, err
	}
	var activeID uuid.UUID
	active, err := s.terms.GetActive(ctx, s.now())
	switch {
	case err == nil:
		activeID = active.ID
	case !db.IsNotFound(err):
		return nil, result.FromDB(err, "terms of service")
	}
	return toModel(p, prefs, activeID), nil
}

func (s *Service) UpdateLastLogin(ctx context.Context, hdid string, now time.Time) error {
	return result.FromDB(s.profiles.UpdateLastLogin(ctx, hdid, now), "profile")
}

func (s *Service) CloseUserProfile(ctx context.Context, hdid string) (*UserProfileModel, error) {
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if p.IsClosed() {
		return s.GetUserProfile(ctx, hdid)
	}
	now := s.now()
	p.ClosedAt = &now
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if p.Email != "" {
		s.queue(ctx, p.Email, notify.TemplateAccountClosed)
	}
	s.events.Publish(ctx, hdid, notify.EventProfileClosed, nil)
	return s.GetUserProfile(ctx, hdid)
}

func (s *Service) RecoverUserProfile(ctx context.Context, hdid string) (*UserProfileModel, error) {
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if !p.IsClosed() {
		return s.GetUserProfile(ctx, hdid)
	}
	p.ClosedAt = nil
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if p.Email != "" {
		s.queue(ctx, p.Email, notify.TemplateAccountRecovered)
	}
	s.events.Publish(ctx, hdid, notify.EventProfileRecovered, nil)
	return s.GetUserProfile(ctx, hdid)
}

// queue sends an account notice. The account change has already been
// committed, so a queue failure is logged rather than returned.
func (s *Service) queue(ctx context.Context, to, templateID string) {
	if s.emails == nil {
		return
	}
	data := map[string]string{"host": s.opts.WebClientURL}
	if err := s.emails.QueueTemplate(ctx, to, templateID, data); err != nil {
		s.logger.Error().Err(err).Str("template", templateID).Msg("account email not queued")
	}
}

func (s *Service) UpdateAcceptedTerms(ctx context.Context, hdid string, termsID uuid.UUID) (*UserProfileModel, error) {
	if _, err := s.terms.GetByID(ctx, termsID); err != nil {
		return nil, result.FromDB(err, "terms of service")
	}
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	p.TermsOfServiceID = termsID
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, result.FromDB(err, "profile")
	}
	return s.GetUserProfile(ctx, hdid)
}

func (s *Service) GetActiveTermsOfService(ctx context.Context) (*LegalAgreement, error) {
	a, err := s.terms.GetActive(ctx, s.now())
	if err != nil {
		return nil, result.FromDB(err, "terms of service")
	}
	return a, nil
}

func (s *Service) IsValidAge(ctx context.Context, hdid string) (bool, error) {
	if s.opts.MinPatientAge <= 0 {
		return true, nil
	}
	age, err := s.ages.Age(ctx, hdid, s.now())
	if err != nil {
		return false, err
	}
	return age >= s.opts.MinPatientAge, nil
}

// -- Preferences --

func (s *Service) GetUserPreferences(ctx context.Context, hdid string) (map[string]*UserPreference, error) {
	items, err := s.prefs.ListByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "preferences")
	}
	out := make(map[string]*UserPreference, len(items))
	for _, p := range items {
		out[p.Name] = p
	}
	return out, nil
}

func (s *Service) CreateUserPreference(ctx context.Context, hdid string, p *UserPreference) (*UserPreference, error) {
	p.Hdid = hdid
	p.Name = strings.TrimSpace(p.Name)
	existing, err := s.GetUserPreferences(ctx, hdid)
	if err != nil {
		return nil, err
	}
	if _, ok := existing[p.Name]; ok {
		return nil, result.AlreadyExists("preference %q already exists", p.Name)
	}
	if err := s.prefs.Create(ctx, p); err != nil {
		return nil, result.FromDB(err, "preference")
	}
	return p, nil
}

func (s *Service) UpdateUserPreference(ctx context.Context, hdid string, p *UserPreference) (*UserPreference, error) {
	p.Hdid = hdid
	existing, err := s.GetUserPreferences(ctx, hdid)
	if err != nil {
		return nil, err
	}
	if _, ok := existing[p.Name]; !ok {
		return nil, result.NotFound(result.ServiceDatabase, "preference %q not found", p.Name)
	}
	if err := s.prefs.Update(ctx, p); err != nil {
		return nil, result.FromDB(err, "preference")
	}
	return p, nil
}
