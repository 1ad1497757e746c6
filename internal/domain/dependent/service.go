package dependent

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/partner/patient"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/internal/platform/validate"
)

const mismatchMessage = "the information you entered does not match our records"

type Service struct {
	delegates Repository
	patients  patient.Lookup
	events    *notify.EventPublisher
	maxAge    int
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(delegates Repository, patients patient.Lookup, events *notify.EventPublisher, maxAge int, logger zerolog.Logger) *Service {
	return &Service{
		delegates: delegates,
		patients:  patients,
		events:    events,
		maxAge:    maxAge,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) AddDependent(ctx context.Context, delegateHdid string, req AddDependentRequest) (*DependentModel, error) {
	if !validate.IsValidPHN(req.PHN) {
		return nil, result.Validation("phn is not a valid personal health number")
	}
	p, err := s.patients.GetByPhn(ctx, req.PHN)
	if err != nil {
		if result.KindOf(err) == result.KindNotFound {
			return nil, result.Validation(mismatchMessage)
		}
		return nil, err
	}
	if !sameName(p.FirstName, req.FirstName) || !sameName(p.LastName, req.LastName) ||
		strings.TrimSpace(req.DateOfBirth) != p.BirthDate {
		return nil, result.Validation(mismatchMessage)
	}

	birth, err := p.Birth()
	if err != nil {
		return nil, result.Upstream(result.ServicePatient, "patient has an invalid birth date", err)
	}
	if patient.AgeAt(birth, s.now()) >= s.maxAge {
		return nil, result.Validation("dependent must be under %d years old", s.maxAge)
	}
	if p.Hdid == delegateHdid {
		return nil, result.Validation("you cannot add yourself as a dependent")
	}

	if _, err := s.delegates.Get(ctx, p.Hdid, delegateHdid); err == nil {
		return nil, result.AlreadyExists("dependent has already been added")
	} else if !db.IsNotFound(err) {
		return nil, result.FromDB(err, "dependent")
	}

	d := &ResourceDelegate{
		ResourceOwnerHdid: p.Hdid,
		ProfileHdid:       delegateHdid,
		ReasonCode:        ReasonGuardian,
	}
	if err := s.delegates.Create(ctx, d); err != nil {
		return nil, result.FromDB(err, "dependent")
	}
	s.events.Publish(ctx, delegateHdid, notify.EventDependentAdded, map[string]string{"dependent_hdid": p.Hdid})
	return toModel(p, d), nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// GetDependents resolves every active grant held by delegateHdid.
func (s *Service) GetDependents(ctx context.Context, delegateHdid string) ([]*DependentModel, error) {
	rows, err := s.delegates.ListByDelegate(ctx, delegateHdid)
	if err != nil {
		return nil, result.FromDB(err, "dependents")
	}
	now := s.now()
	out := make([]*DependentModel, 0, len(rows))
	for _, d := range rows {
		if d.ExpiredAt(now) {
			continue
		}
		p, err := s.patients.GetByHdid(ctx, d.ResourceOwnerHdid)
		if err != nil {
			s.logger.Warn().Err(err).Str("dependent_hdid", d.ResourceOwnerHdid).Msg("dependent not resolved")
			return nil, err
		}
		out = append(out, toModel(p, d))
	}
	return out, nil
}

func (s *Service) RemoveDependent(ctx context.Context, delegateHdid, dependentHdid string) error {
	if err := s.delegates.Delete(ctx, dependentHdid, delegateHdid); err != nil {
		return result.FromDB(err, "dependent")
	}
	s.events.Publish(ctx, delegateHdid, notify.EventDependentRemoved, map[string]string{"dependent_hdid": dependentHdid})
	return nil
}

// IsDelegateOf reports whether delegateHdid holds an unexpired grant on ownerHdid.
func (s *Service) IsDelegateOf(ctx context.Context, ownerHdid, delegateHdid string, now time.Time) (bool, error) {
	d, err := s.delegates.Get(ctx, ownerHdid, delegateHdid)
	if db.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, result.FromDB(err, "dependent")
	}
	return !d.ExpiredAt(now), nil
}

func (s *Service) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.delegates.DeleteExpired(ctx, now)
	if err != nil {
		return 0, result.FromDB(err, "dependents")
	}
	return n, nil
}

func toModel(p *patient.Patient, d *ResourceDelegate) *DependentModel {
	return &DependentModel{
		OwnerHdid:   d.ResourceOwnerHdid,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.BirthDate,
		Gender:      p.Gender,
		PHN:         MaskPHN(p.PHN),
		ReasonCode:  d.ReasonCode,
		ExpiryDate:  d.ExpiryDate,
	}
}
