package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/penaltyd/internal/clock"
	escalationdomain "github.com/fieldops/penaltyd/internal/escalation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

// Service is the default Notifier: it logs every escalation and persists
// probation records. A chat or messaging transport can replace it wholesale.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) escalationdomain.Notifier {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("escalation.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Warn(ctx context.Context, userID int64, reason string) error {
	_ = ctx
	s.log.Info("warn user", zap.Int64("user_id", userID), zap.String("reason", reason))
	return nil
}

func (s *Service) NotifyAdmins(ctx context.Context, message string) error {
	_ = ctx
	s.log.Info("notify admins", zap.String("message", message))
	return nil
}

func (s *Service) StartProbation(ctx context.Context, userID int64, days int, reason string) error {
	now := s.clock.Now()
	probation := &escalationdomain.Probation{
		ID:        s.genID.Generate(),
		UserID:    userID,
		StartedAt: now,
		EndsAt:    now.Add(time.Duration(days) * 24 * time.Hour),
		Reason:    reason,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(probation).Error; err != nil {
		return err
	}
	s.log.Info("probation started",
		zap.Int64("user_id", userID),
		zap.Time("ends_at", probation.EndsAt),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) SuggestSuspension(ctx context.Context, userID int64, summary string) error {
	_ = ctx
	s.log.Warn("suspension suggested", zap.Int64("user_id", userID), zap.String("summary", summary))
	return nil
}
