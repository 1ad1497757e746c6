package medication

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/partner/odr"
	"github.com/healthgateway/gateway/internal/partner/patient"
	"github.com/healthgateway/gateway/internal/partner/salesforce"
	"github.com/healthgateway/gateway/internal/platform/cache"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type PatientLookup interface {
	GetByHdid(ctx context.Context, hdid string) (*patient.Patient, error)
}

// HistoryClient is satisfied by *odr.Client.
type HistoryClient interface {
	GetProtectiveWord(ctx context.Context, phn string) (string, error)
	GetMedicationHistory(ctx context.Context, phn, protectiveWord string) ([]odr.DispensedMedication, error)
}

// SpecialAuthorityClient is satisfied by *salesforce.Client.
type SpecialAuthorityClient interface {
	GetSpecialAuthorityRequests(ctx context.Context, phn string) ([]salesforce.SpecialAuthorityRequest, error)
}

type Service struct {
	patients PatientLookup
	odr      HistoryClient
	sf       SpecialAuthorityClient
	cache    *cache.Cache
	wordTTL  time.Duration
	logger   zerolog.Logger
}

func NewService(patients PatientLookup, history HistoryClient, sf SpecialAuthorityClient, c *cache.Cache, wordTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		odr:      history,
		sf:       sf,
		cache:    c,
		wordTTL:  wordTTL,
		logger:   logger,
	}
}

// GetMedicationStatements returns the dispense history for hdid once the
// caller has supplied the patient's protective word, if one is set.
func (s *Service) GetMedicationStatements(ctx context.Context, hdid, protectiveWord string) result.RequestResult[[]MedicationStatement] {
	if err := checkProtectiveWord(protectiveWord); err != nil {
		return result.Failure[[]MedicationStatement](err)
	}

	p, err := s.patients.GetByHdid(ctx, hdid)
	if err != nil {
		return s.fail(err, hdid, "patient lookup failed")
	}

	stored, err := s.storedWord(ctx, p.PHN)
	if err != nil {
		return s.fail(err, hdid, "protective word lookup failed")
	}
	if stored != "" && !strings.EqualFold(stored, protectiveWord) {
		if protectiveWord == "" {
			return result.ActionRequiredResult[[]MedicationStatement](result.ActionProtected, "Record protected by keyword")
		}
		s.logger.Info().Str("hdid", hdid).Msg("invalid protective word")
		return result.ActionRequiredResult[[]MedicationStatement](result.ActionProtected, "Invalid protective word")
	}

	records, err := s.odr.GetMedicationHistory(ctx, p.PHN, protectiveWord)
	if err != nil {
		return s.fail(err, hdid, "medication history failed")
	}
	out := make([]MedicationStatement, 0, len(records))
	for _, r := range records {
		out = append(out, fromDispensed(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DispensedDate.After(out[j].DispensedDate)
	})
	return result.SuccessPage(out, len(out), 0, len(out))
}

func (s *Service) storedWord(ctx context.Context, phn string) (string, error) {
	return cache.GetOrSet(ctx, s.cache, "protective-word:"+phn, s.wordTTL, func(ctx context.Context) (string, error) {
		return s.odr.GetProtectiveWord(ctx, phn)
	})
}

func checkProtectiveWord(word string) error {
	n := utf8.RuneCountInString(word)
	switch {
	case n > maxProtectiveWordLength:
		return result.ActionRequired(result.ActionValidation, "Protective word too long")
	case n > 0 && n < minProtectiveWordLength:
		return result.ActionRequired(result.ActionValidation, "Protective word too short")
	case strings.ContainsAny(word, "|~"):
		return result.ActionRequired(result.ActionValidation, "Protective word contains invalid characters")
	}
	return nil
}

func (s *Service) GetMedicationRequests(ctx context.Context, hdid string) result.RequestResult[[]MedicationRequest] {
	p, err := s.patients.GetByHdid(ctx, hdid)
	if err != nil {
		return s.failRequests(err, hdid, "patient lookup failed")
	}
	items, err := s.sf.GetSpecialAuthorityRequests(ctx, p.PHN)
	if err != nil {
		return s.failRequests(err, hdid, "special authority lookup failed")
	}
	out := make([]MedicationRequest, 0, len(items))
	for _, r := range items {
		out = append(out, MedicationRequest{
			ReferenceNumber: r.ReferenceNumber,
			DrugName:        r.DrugName,
			RequestStatus:   r.RequestStatus,
			PrescriberName:  strings.TrimSpace(r.PrescriberFirstName + " " + r.PrescriberLastName),
			RequestedDate:   r.RequestedDate,
			EffectiveDate:   r.EffectiveDate,
			ExpiryDate:      r.ExpiryDate,
		})
	}
	return result.SuccessPage(out, len(out), 0, len(out))
}

func (s *Service) fail(err error, hdid, msg string) result.RequestResult[[]MedicationStatement] {
	s.logger.Error().Err(err).Str("hdid", hdid).Msg(msg)
	return result.Failure[[]MedicationStatement](err)
}

func (s *Service) failRequests(err error, hdid, msg string) result.RequestResult[[]MedicationRequest] {
	s.logger.Error().Err(err).Str("hdid", hdid).Msg(msg)
	return result.Failure[[]MedicationRequest](err)
}
