// Package scheduler drives the weekly point decay batch. The job is meant to
// be externally triggered (HTTP or the optional interval loop); every run is
// idempotent per scheduling period only through trigger discipline, so the
// loop defaults off.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/fieldops/penaltyd/internal/clock"
	forgivenessdomain "github.com/fieldops/penaltyd/internal/forgiveness/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler requires db, logger, clock and forgiveness service")

type Params struct {
	fx.In

	Log            *zap.Logger
	Clock          clock.Clock
	ForgivenessSvc forgivenessdomain.Service
	Config         Config `optional:"true"`
}

type Scheduler struct {
	log            *zap.Logger
	cfg            Config
	clock          clock.Clock
	forgivenessSvc forgivenessdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.ForgivenessSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		forgivenessSvc: p.ForgivenessSvc,
	}, nil
}

// RunOnce applies weekly decay to every user with outstanding applied rows.
// A restart mid-batch is safe to not re-trigger: each user's decay is a
// single UPDATE, and users already processed keep their result.
func (s *Scheduler) RunOnce(parent context.Context) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	userIDs, err := s.forgivenessSvc.UsersWithOutstanding(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, userID := range userIDs {
		if err := s.forgivenessSvc.DecayWeekly(ctx, userID, s.cfg.DecayPoints); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.log.Warn("decay run timed out", zap.Int("processed", len(userIDs)-failed))
				return nil
			}
			failed++
			s.log.Warn("decay failed for user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	s.log.Info("decay run finished",
		zap.Int("users", len(userIDs)),
		zap.Int("failed", failed),
		zap.Duration("took", s.clock.Now().Sub(start)),
	)
	return nil
}

// RunForever loops RunOnce at the configured interval until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("decay run failed", zap.Error(err))
			}
		}
	}
}
