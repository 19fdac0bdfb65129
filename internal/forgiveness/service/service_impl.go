package service

import (
	"context"

	"github.com/fieldops/penaltyd/internal/clock"
	forgivenessdomain "github.com/fieldops/penaltyd/internal/forgiveness/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) forgivenessdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("forgiveness.service"),
		clock: p.Clock,
	}
}

func (s *Service) AdjustForStreak(ctx context.Context, ledger ledgerdomain.Service, candidate *ledgerdomain.PenaltyLedger, cfg policydomain.Forgiveness) error {
	if !cfg.Enabled() {
		return nil
	}

	last, err := ledger.LatestForUser(ctx, candidate.UserID)
	if err != nil {
		return err
	}
	streakDays := 0
	if last != nil {
		streakDays = int(s.clock.Now().Sub(last.UTC()).Hours() / 24)
	}
	if last != nil && streakDays < cfg.StreakDaysToWaive {
		return nil
	}
	if last == nil && cfg.StreakDaysToWaive > 0 {
		// No prior entries means streak 0, which never reaches a positive
		// waive threshold.
		return nil
	}

	keep := 100 - cfg.WaivePercent
	before := candidate.Points
	candidate.Points = candidate.Points * keep / 100
	if candidate.Amount != nil {
		reduced := *candidate.Amount * float64(keep) / 100
		candidate.Amount = &reduced
	}
	s.log.Info("streak forgiveness applied",
		zap.Int64("user_id", candidate.UserID),
		zap.Int("streak_days", streakDays),
		zap.Int("points_before", before),
		zap.Int("points_after", candidate.Points),
	)
	return nil
}

func (s *Service) DecayWeekly(ctx context.Context, userID int64, points int) error {
	if points <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).Exec(
		`UPDATE penalty_ledger SET points = points - ? WHERE user_id = ? AND status = ?`,
		points, userID, ledgerdomain.StatusApplied,
	).Error
}

func (s *Service) UsersWithOutstanding(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT user_id FROM penalty_ledger WHERE status = ? ORDER BY user_id`,
		ledgerdomain.StatusApplied,
	).Scan(&userIDs).Error
	return userIDs, err
}
