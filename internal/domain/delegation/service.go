package delegation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/domain/dependent"
	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Options struct {
	MaxAttempts  int
	WebClientURL string
}

type Service struct {
	delegations Repository
	delegates   dependent.Repository
	profiles    profile.KeyReader
	emails      profile.EmailQueuer
	events      *notify.EventPublisher
	tx          db.TxFunc
	opts        Options
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	delegations Repository,
	delegates dependent.Repository,
	profiles profile.KeyReader,
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
		delegations: delegations,
		delegates:   delegates,
		profiles:    profiles,
		emails:      emails,
		events:      events,
		tx:          tx,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) CreateDelegation(ctx context.Context, ownerHdid string, req CreateRequest) (*CreateResponse, error) {
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" || len([]rune(nickname)) > maxNicknameLength {
		return nil, result.Validation("nickname is required and must be at most %d characters", maxNicknameLength)
	}
	sources, err := normalizeSources(req.DataSources)
	if err != nil {
		return nil, err
	}

	d := &Delegation{
		ResourceOwnerHdid: ownerHdid,
		Nickname:          nickname,
		DataSources:       sources,
		Status:            StatusPending,
	}
	if req.ExpiryDate != "" {
		expiry, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			return nil, result.Validation("expiry_date must be formatted YYYY-MM-DD")
		}
		y, m, day := s.now().Date()
		if !expiry.After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
			return nil, result.Validation("expiry_date must be after today")
		}
		d.ExpiryDate = &expiry
	}

	code, err := crypto.NewSharingCode()
	if err != nil {
		return nil, err
	}
	if d.SharingCodeHash, err = crypto.HashCode(code); err != nil {
		return nil, err
	}
	if err := s.delegations.Create(ctx, d); err != nil {
		return nil, result.FromDB(err, "delegation")
	}
	s.logger.Info().Str("hdid", ownerHdid).Str("delegation_id", d.ID.String()).Msg("delegation created")
	return &CreateResponse{DelegationID: d.ID, SharingCode: code}, nil
}

func normalizeSources(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if !validDataSources[s] {
			return nil, result.Validation("unknown data source %q", s)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, result.Validation("at least one data source is required")
	}
	return out, nil
}

// AssociateDelegation redeems a sharing code for delegateHdid. The invitation
// is locked for the whole check so that concurrent redemptions and guesses
// are counted one at a time.
func (s *Service) AssociateDelegation(ctx context.Context, delegateHdid string, id uuid.UUID, code string, now time.Time) (*Delegation, error) {
	var (
		d        *Delegation
		rejected error
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.delegations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return result.FromDB(err, "delegation")
		}
		rejected, err = s.redeem(ctx, d, delegateHdid, code, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}

	s.events.Publish(ctx, d.ResourceOwnerHdid, notify.EventDelegationAccepted, map[string]string{
		"delegation_id": d.ID.String(),
		"delegate_hdid": delegateHdid,
	})
	s.notifyOwner(ctx, d)
	return d, nil
}

// redeem applies the association rules to a locked invitation. Checks run in
// a fixed order so that a used, locked or lapsed invitation never reaches the
// code comparison. A rejection is returned separately from err so that the
// writes it made (expiry, failed attempts) still commit.
func (s *Service) redeem(ctx context.Context, d *Delegation, delegateHdid, code string, now time.Time) (rejected, err error) {
	switch {
	case d.Status == StatusAccepted:
		return result.AlreadyExists("this invitation has already been used"), nil
	case d.Status == StatusLocked:
		return result.InvalidState("this invitation is locked"), nil
	case d.Status == StatusExpired || d.expiredAt(now):
		if d.Status != StatusExpired {
			d.Status = StatusExpired
			if err := s.delegations.Update(ctx, d); err != nil {
				return nil, result.FromDB(err, "delegation")
			}
		}
		return result.InvalidState("this invitation has expired"), nil
	case d.ResourceOwnerHdid == delegateHdid:
		return result.Validation("you cannot accept your own invitation"), nil
	}

	if !crypto.CompareCode(d.SharingCodeHash, code) {
		d.FailedAttempts++
		if d.FailedAttempts >= s.opts.MaxAttempts {
			d.Status = StatusLocked
		}
		if err := s.delegations.Update(ctx, d); err != nil {
			return nil, result.FromDB(err, "delegation")
		}
		if d.Status == StatusLocked {
			s.logger.Warn().Str("delegation_id", d.ID.String()).Msg("delegation locked after failed attempts")
		}
		return result.Validation("the sharing code is not valid"), nil
	}

	d.Status = StatusAccepted
	d.ProfileHdid = delegateHdid
	if err := s.delegations.Update(ctx, d); err != nil {
		return nil, result.FromDB(err, "delegation")
	}
	grant := &dependent.ResourceDelegate{
		ResourceOwnerHdid: d.ResourceOwnerHdid,
		ProfileHdid:       delegateHdid,
		ReasonCode:        dependent.ReasonDelegation,
		DelegationID:      &d.ID,
		ExpiryDate:        d.ExpiryDate,
	}
	return nil, result.FromDB(s.delegates.Create(ctx, grant), "delegate")
}

// notifyOwner emails the owner when their profile has a verified address.
func (s *Service) notifyOwner(ctx context.Context, d *Delegation) {
	if s.profiles == nil || s.emails == nil {
		return
	}
	p, err := s.profiles.GetByHdid(ctx, d.ResourceOwnerHdid)
	if err != nil || p.Email == "" {
		return
	}
	data := map[string]string{"nickname": d.Nickname, "host": s.opts.WebClientURL}
	if err := s.emails.QueueTemplate(ctx, p.Email, notify.TemplateDelegationAccepted, data); err != nil {
		s.logger.Error().Err(err).Str("delegation_id", d.ID.String()).Msg("delegation email not queued")
	}
}

func (s *Service) GetDelegations(ctx context.Context, ownerHdid string, now time.Time) ([]*Delegation, error) {
	items, err := s.delegations.ListByOwner(ctx, ownerHdid)
	if err != nil {
		return nil, result.FromDB(err, "delegations")
	}
	if items == nil {
		items = []*Delegation{}
	}
	for _, d := range items {
		d.Status = d.EffectiveStatus(now)
	}
	return items, nil
}

func (s *Service) RemoveDelegation(ctx context.Context, ownerHdid string, id uuid.UUID) error {
	d, err := s.delegations.GetByID(ctx, id)
	if err != nil {
		return result.FromDB(err, "delegation")
	}
	if d.ResourceOwnerHdid != ownerHdid {
		return result.Forbidden("delegation %s belongs to another user", id)
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.delegates.DeleteByDelegation(ctx, id); err != nil {
			return result.FromDB(err, "delegate")
		}
		return result.FromDB(s.delegations.Delete(ctx, id), "delegation")
	})
}

// ExpireDelegations marks lapsed invitations Expired and drops lapsed grants.
func (s *Service) ExpireDelegations(ctx context.Context, now time.Time) (ExpiryReport, error) {
	var report ExpiryReport
	n, err := s.delegations.ExpirePending(ctx, now)
	if err != nil {
		return report, result.FromDB(err, "delegations")
	}
	report.Invitations = n
	if report.Grants, err = s.delegates.DeleteExpired(ctx, now); err != nil {
		return report, result.FromDB(err, "delegates")
	}
	return report, nil
}
