package service

import (
	"context"
	"errors"
	"time"

	"github.com/fieldops/penaltyd/internal/clock"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
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

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		clock: p.Clock,
	}
}

func (s *Service) WithTx(tx *gorm.DB) ledgerdomain.Service {
	return &Service{db: tx, log: s.log, clock: s.clock}
}

func (s *Service) CreateBatch(ctx context.Context, rows []*ledgerdomain.PenaltyLedger) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(rows).Error
}

func (s *Service) GetByID(ctx context.Context, id int64) (*ledgerdomain.PenaltyLedger, error) {
	var row ledgerdomain.PenaltyLedger
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrLedgerNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]ledgerdomain.PenaltyLedger, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []ledgerdomain.PenaltyLedger
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *Service) Waive(ctx context.Context, id int64, reason string) error {
	return s.setStatus(ctx, id, map[string]any{
		"status":        ledgerdomain.StatusWaived,
		"waiver_reason": reason,
	})
}

func (s *Service) Reverse(ctx context.Context, id int64, byUserID int64) error {
	return s.setStatus(ctx, id, map[string]any{
		"status":              ledgerdomain.StatusReversed,
		"reversed_by_user_id": byUserID,
	})
}

func (s *Service) setStatus(ctx context.Context, id int64, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&ledgerdomain.PenaltyLedger{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrLedgerNotFound
	}
	return nil
}

func (s *Service) SumPointsSince(ctx context.Context, userID int64, policyID int64, since time.Time) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(points), 0) FROM penalty_ledger
		 WHERE user_id = ? AND policy_id = ? AND applied_at >= ?`,
		userID, policyID, since.UTC(),
	).Scan(&total).Error
	return total, err
}

func (s *Service) SumAmountSince(ctx context.Context, userID int64, policyID int64, since time.Time) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM penalty_ledger
		 WHERE user_id = ? AND policy_id = ? AND applied_at >= ?`,
		userID, policyID, since.UTC(),
	).Scan(&total).Error
	return total, err
}

func (s *Service) LastAppliedAt(ctx context.Context, userID int64, policyID int64, source eventdomain.Source) (*time.Time, error) {
	var row ledgerdomain.PenaltyLedger
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND policy_id = ? AND source = ?", userID, policyID, source).
		Order("applied_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	appliedAt := row.AppliedAt
	return &appliedAt, nil
}

func (s *Service) LatestForUser(ctx context.Context, userID int64) (*time.Time, error) {
	var row ledgerdomain.PenaltyLedger
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	appliedAt := row.AppliedAt
	return &appliedAt, nil
}

func (s *Service) OutstandingPoints(ctx context.Context, userID int64, policyID int64) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(points), 0) FROM penalty_ledger
		 WHERE user_id = ? AND policy_id = ? AND status = ?`,
		userID, policyID, ledgerdomain.StatusApplied,
	).Scan(&total).Error
	return total, err
}
