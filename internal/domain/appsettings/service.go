package appsettings

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/cache"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Service struct {
	settings Repository
	cache    *cache.Cache
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewService(settings Repository, c *cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{settings: settings, cache: c, ttl: ttl, logger: logger}
}

// GetLatestTourChangeDateTime returns the zero time when no change has been
// published.
func (s *Service) GetLatestTourChangeDateTime(ctx context.Context) (time.Time, error) {
	t, err := cache.GetOrSet(ctx, s.cache, tourCacheKey, s.ttl, func(ctx context.Context) (time.Time, error) {
		setting, err := s.settings.Get(ctx, applicationWeb, componentTour, keyTourChangeDate)
		if db.IsNotFound(err) {
			return time.Time{}, nil
		}
		if err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339, setting.Value)
	})
	if err != nil {
		return time.Time{}, result.FromDB(err, "tour change date")
	}
	return t, nil
}

func (s *Service) SetLatestTourChangeDateTime(ctx context.Context, t time.Time) error {
	setting := &ApplicationSetting{
		Application: applicationWeb,
		Component:   componentTour,
		Key:         keyTourChangeDate,
		Value:       t.UTC().Format(time.RFC3339),
	}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return result.FromDB(err, "tour change date")
	}
	if s.cache != nil {
		if err := s.cache.Remove(ctx, tourCacheKey); err != nil {
			s.logger.Warn().Err(err).Msg("tour change cache not invalidated")
		}
	}
	s.logger.Info().Time("latest_change", t).Msg("tour change date updated")
	return nil
}
