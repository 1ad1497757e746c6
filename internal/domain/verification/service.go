package verification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/partner/phsa"
	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/internal/platform/validate"
)

type Options struct {
	WebClientURL string
	EmailExpiry  time.Duration
	SmsExpiry    time.Duration
	MaxAttempts  int
}

type Service struct {
	verifications Repository
	profiles      profile.ProfileRepository
	settings      phsa.SettingsUpdater
	emails        profile.EmailQueuer
	events        *notify.EventPublisher
	tx            db.TxFunc
	opts          Options
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(
	verifications Repository,
	profiles profile.ProfileRepository,
	settings phsa.SettingsUpdater,
	emails profile.EmailQueuer,
	events *notify.EventPublisher,
	tx db.TxFunc,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if tx == nil {
		tx = db.NoTx
	}
	return &Service{
		verifications: verifications,
		profiles:      profiles,
		settings:      settings,
		emails:        emails,
		events:        events,
		tx:            tx,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
	}
}

// -- Email --

// UpdateEmailAddress replaces the pending email verification for hdid. An
// address equal to the one in the caller's token is trusted immediately.
func (s *Service) UpdateEmailAddress(ctx context.Context, hdid, email, jwtEmail string) error {
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return result.FromDB(err, "profile")
	}
	if err := s.verifications.DeleteOpen(ctx, hdid, TypeEmail); err != nil {
		return result.FromDB(err, "email verification")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		if err := s.setProfileEmail(ctx, p, ""); err != nil {
			return err
		}
		return s.pushSettings(ctx, p, "", false)
	}

	now := s.now()
	v := &MessagingVerification{
		Hdid:       hdid,
		Type:       TypeEmail,
		Email:      email,
		InviteKey:  uuid.New(),
		Validated:  jwtEmail != "" && strings.EqualFold(email, strings.TrimSpace(jwtEmail)),
		ExpireDate: now.Add(s.opts.EmailExpiry),
	}
	if err := s.verifications.Create(ctx, v); err != nil {
		return result.FromDB(err, "email verification")
	}

	if v.Validated {
		if err := s.setProfileEmail(ctx, p, email); err != nil {
			return err
		}
		if err := s.pushSettings(ctx, p, email, true); err != nil {
			return err
		}
		s.events.Publish(ctx, hdid, notify.EventEmailVerified, map[string]string{"source": "token"})
		return nil
	}

	if err := s.setProfileEmail(ctx, p, ""); err != nil {
		return err
	}
	data := map[string]string{
		"activation_link": fmt.Sprintf("%s/validateEmail/%s", strings.TrimRight(s.opts.WebClientURL, "/"), v.InviteKey),
		"expiry_hours":    strconv.Itoa(int(s.opts.EmailExpiry.Hours())),
	}
	if err := s.emails.QueueTemplate(ctx, email, notify.TemplateEmailVerification, data); err != nil {
		s.logger.Error().Err(err).Str("hdid", hdid).Msg("verification email not queued")
		return result.Upstream(result.ServiceQueue, "unable to queue verification email", err)
	}
	return s.pushSettings(ctx, p, email, false)
}

func (s *Service) VerifyEmailAddress(ctx context.Context, hdid, inviteKey string) (*VerificationResult, error) {
	v, res, err := s.check(ctx, hdid, TypeEmail, inviteKey)
	if err != nil || res != nil {
		return res, err
	}
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if err := s.setProfileEmail(ctx, p, v.Email); err != nil {
		return nil, err
	}
	if err := s.pushSettings(ctx, p, v.Email, true); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, hdid, notify.EventEmailVerified, nil)
	return &VerificationResult{Status: StatusVerified, Verified: true}, nil
}

// -- SMS --

func (s *Service) UpdateSmsNumber(ctx context.Context, hdid, sms string) error {
	sms = validate.SanitizeSms(sms)
	if sms != "" && !validate.IsValidSms(sms) {
		return result.Validation("sms number must be 10 digits")
	}
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return result.FromDB(err, "profile")
	}
	if err := s.verifications.DeleteOpen(ctx, hdid, TypeSMS); err != nil {
		return result.FromDB(err, "sms verification")
	}

	if sms == "" {
		if err := s.setProfileSms(ctx, p, ""); err != nil {
			return err
		}
		return s.pushSettings(ctx, p, p.Email, p.Email != "")
	}

	code, err := crypto.NewSmsCode()
	if err != nil {
		return err
	}
	v := &MessagingVerification{
		Hdid:              hdid,
		Type:              TypeSMS,
		SmsNumber:         sms,
		SmsValidationCode: code,
		ExpireDate:        s.now().Add(s.opts.SmsExpiry),
	}
	if err := s.verifications.Create(ctx, v); err != nil {
		return result.FromDB(err, "sms verification")
	}
	if err := s.setProfileSms(ctx, p, ""); err != nil {
		return err
	}
	// PHSA texts the code to the new number.
	settings := s.baseSettings(p, p.Email, p.Email != "")
	settings.SmsNumber = sms
	settings.SmsVerificationCode = code
	settings.SmsEnabled = true
	return s.push(ctx, settings)
}

func (s *Service) VerifySmsNumber(ctx context.Context, hdid, code string) (*VerificationResult, error) {
	v, res, err := s.check(ctx, hdid, TypeSMS, code)
	if err != nil || res != nil {
		return res, err
	}
	p, err := s.profiles.GetByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "profile")
	}
	if err := s.setProfileSms(ctx, p, v.SmsNumber); err != nil {
		return nil, err
	}
	if err := s.pushSettings(ctx, p, p.Email, p.Email != ""); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, hdid, notify.EventSmsVerified, nil)
	return &VerificationResult{Status: StatusVerified, Verified: true}, nil
}

// check runs the shared verification sequence on the latest row, locked for
// the duration so that concurrent guesses each count as an attempt. It
// returns a non-nil result when the sequence ends without a new successful
// match, and the freshly validated row otherwise.
func (s *Service) check(ctx context.Context, hdid string, typ Type, supplied string) (*MessagingVerification, *VerificationResult, error) {
	var (
		v   *MessagingVerification
		res *VerificationResult
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.verifications.GetLatestForUpdate(ctx, hdid, typ)
		if err != nil {
			return result.FromDB(err, strings.ToLower(string(typ))+" verification")
		}
		switch {
		case v.Deleted:
			return result.NotFound(result.ServiceDatabase, "%s verification not found", strings.ToLower(string(typ)))
		case v.Validated:
			res = &VerificationResult{Status: StatusVerified, Verified: true}
			return nil
		case v.VerificationAttempts >= s.opts.MaxAttempts:
			res = &VerificationResult{Status: StatusTooManyAttempts}
			return nil
		case v.ExpireDate.Before(s.now()):
			res = &VerificationResult{Status: StatusExpired}
			return nil
		}

		if !strings.EqualFold(strings.TrimSpace(supplied), v.secret()) {
			v.VerificationAttempts++
			res = &VerificationResult{Status: StatusInvalid}
		} else {
			v.Validated = true
		}
		return result.FromDB(s.verifications.Update(ctx, v), "verification")
	})
	if err != nil {
		return nil, nil, err
	}
	if res != nil {
		return nil, res, nil
	}
	return v, nil, nil
}

func (s *Service) setProfileEmail(ctx context.Context, p *profile.UserProfile, email string) error {
	if p.Email == email {
		return nil
	}
	p.Email = email
	return result.FromDB(s.profiles.Update(ctx, p), "profile")
}

func (s *Service) setProfileSms(ctx context.Context, p *profile.UserProfile, sms string) error {
	if p.SmsNumber == sms {
		return nil
	}
	p.SmsNumber = sms
	return result.FromDB(s.profiles.Update(ctx, p), "profile")
}

func (s *Service) baseSettings(p *profile.UserProfile, email string, emailEnabled bool) phsa.NotificationSettings {
	return phsa.NotificationSettings{
		Hdid:         p.Hdid,
		Email:        email,
		EmailEnabled: emailEnabled,
		SmsNumber:    p.SmsNumber,
		SmsVerified:  p.SmsNumber != "",
		SmsEnabled:   p.SmsNumber != "",
	}
}

func (s *Service) pushSettings(ctx context.Context, p *profile.UserProfile, email string, emailEnabled bool) error {
	return s.push(ctx, s.baseSettings(p, email, emailEnabled))
}

func (s *Service) push(ctx context.Context, settings phsa.NotificationSettings) error {
	if s.settings == nil {
		return nil
	}
	if err := s.settings.UpdateNotificationSettings(ctx, settings); err != nil {
		s.logger.Error().Err(err).Str("partner", string(result.ServicePHSA)).Str("hdid", settings.Hdid).
			Msg("notification settings not updated")
		return err
	}
	return nil
}
