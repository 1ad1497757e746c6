// Package patient looks up demographics in the client registry.
package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/partner/rest"
	"github.com/healthgateway/gateway/internal/platform/cache"
	"github.com/healthgateway/gateway/internal/platform/result"
)

const dateLayout = "2006-01-02"

type Patient struct {
	Hdid               string `json:"hdid"`
	PHN                string `json:"phn"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	PreferredFirstName string `json:"preferred_first_name,omitempty"`
	PreferredLastName  string `json:"preferred_last_name,omitempty"`
	BirthDate          string `json:"birth_date"`
	Gender             string `json:"gender"`
}

// Birth parses BirthDate (YYYY-MM-DD).
func (p Patient) Birth() (time.Time, error) {
	return time.Parse(dateLayout, p.BirthDate)
}

// Lookup is implemented by Client and Service.
type Lookup interface {
	GetByHdid(ctx context.Context, hdid string) (*Patient, error)
	GetByPhn(ctx context.Context, phn string) (*Patient, error)
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: rest.NewClient(baseURL, timeout)}
}

func (c *Client) GetByHdid(ctx context.Context, hdid string) (*Patient, error) {
	return c.get(ctx, "/patients/hdid/{id}", hdid)
}

func (c *Client) GetByPhn(ctx context.Context, phn string) (*Patient, error) {
	return c.get(ctx, "/patients/phn/{id}", phn)
}

func (c *Client) get(ctx context.Context, path, id string) (*Patient, error) {
	var p Patient
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&p).
		Get(path)
	if err := rest.Check(resp, err, result.ServicePatient); err != nil {
		return nil, err
	}
	return &p, nil
}

// Service caches registry lookups by hdid and by phn.
type Service struct {
	lookup Lookup
	cache  *cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewService(lookup Lookup, c *cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{lookup: lookup, cache: c, ttl: ttl, logger: logger}
}

func (s *Service) GetByHdid(ctx context.Context, hdid string) (*Patient, error) {
	p, err := cache.GetOrSet(ctx, s.cache, "patient:hdid:"+hdid, s.ttl, func(ctx context.Context) (*Patient, error) {
		return s.lookup.GetByHdid(ctx, hdid)
	})
	if err != nil {
		s.logUpstream(err, "hdid")
		return nil, err
	}
	return p, nil
}

func (s *Service) GetByPhn(ctx context.Context, phn string) (*Patient, error) {
	p, err := cache.GetOrSet(ctx, s.cache, "patient:phn:"+phn, s.ttl, func(ctx context.Context) (*Patient, error) {
		return s.lookup.GetByPhn(ctx, phn)
	})
	if err != nil {
		s.logUpstream(err, "phn")
		return nil, err
	}
	return p, nil
}

func (s *Service) logUpstream(err error, by string) {
	if result.KindOf(err) == result.KindUpstream {
		s.logger.Error().Err(err).Str("partner", string(result.ServicePatient)).Str("lookup", by).Msg("patient lookup failed")
	}
}

// Age returns the patient's age in whole years at now.
func (s *Service) Age(ctx context.Context, hdid string, now time.Time) (int, error) {
	p, err := s.GetByHdid(ctx, hdid)
	if err != nil {
		return 0, err
	}
	birth, err := p.Birth()
	if err != nil {
		return 0, result.Upstream(result.ServicePatient, fmt.Sprintf("invalid birth date %q", p.BirthDate), err)
	}
	return AgeAt(birth, now), nil
}

// AgeAt counts completed birthdays between birth and now.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
