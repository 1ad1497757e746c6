package delegation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper runs ExpireDelegations on a fixed interval.
type Sweeper struct {
	svc    *Service
	logger zerolog.Logger
	now    func() time.Time
}

func NewSweeper(svc *Service, logger zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, logger: logger, now: time.Now}
}

// Start sweeps once immediately and then every interval until ctx is done.
// The returned channel is closed when the loop exits.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunOnce(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

func (s *Sweeper) RunOnce(ctx context.Context) (ExpiryReport, error) {
	report, err := s.svc.ExpireDelegations(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("delegation sweep failed")
		return report, err
	}
	if report.Invitations > 0 || report.Grants > 0 {
		s.logger.Info().
			Int64("invitations_expired", report.Invitations).
			Int64("grants_removed", report.Grants).
			Msg("delegation sweep")
	}
	return report, nil
}
