package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/fieldops/penaltyd/internal/appeal/domain"
	"github.com/fieldops/penaltyd/internal/clock"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	LedgerSvc ledgerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service
}

func New(p Params) appealdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("appeal.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
	}
}

func (s *Service) Create(ctx context.Context, ledgerID int64, userID int64) (*appealdomain.Appeal, error) {
	if _, err := s.ledgerSvc.GetByID(ctx, ledgerID); err != nil {
		return nil, err
	}

	var open int64
	err := s.db.WithContext(ctx).
		Model(&appealdomain.Appeal{}).
		Where("ledger_id = ? AND status = ?", ledgerID, appealdomain.StatusOpen).
		Count(&open).Error
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, appealdomain.ErrAppealAlreadyOpen
	}

	appeal := &appealdomain.Appeal{
		ID:        s.genID.Generate(),
		LedgerID:  snowflake.ID(ledgerID),
		UserID:    userID,
		CreatedAt: s.clock.Now(),
		Status:    appealdomain.StatusOpen,
	}
	if err := s.db.WithContext(ctx).Create(appeal).Error; err != nil {
		return nil, err
	}
	s.log.Info("appeal created",
		zap.Int64("appeal_id", int64(appeal.ID)),
		zap.Int64("ledger_id", ledgerID),
		zap.Int64("user_id", userID),
	)
	return appeal, nil
}

func (s *Service) Resolve(ctx context.Context, appealID int64, moderatorID int64, approve bool, comment string) (*appealdomain.Appeal, error) {
	var resolved *appealdomain.Appeal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appeal appealdomain.Appeal
		if err := tx.First(&appeal, "id = ?", appealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appealdomain.ErrAppealNotFound
			}
			return err
		}
		if appeal.Status != appealdomain.StatusOpen {
			return appealdomain.ErrAppealAlreadyDecided
		}

		now := s.clock.Now()
		appeal.Status = appealdomain.StatusRejected
		if approve {
			appeal.Status = appealdomain.StatusApproved
		}
		appeal.ModeratorUserID = &moderatorID
		appeal.DecisionComment = comment
		appeal.DecidedAt = &now

		if err := tx.Save(&appeal).Error; err != nil {
			return err
		}

		if approve {
			if err := s.ledgerSvc.WithTx(tx).Waive(ctx, int64(appeal.LedgerID), comment); err != nil {
				return err
			}
		}

		resolved = &appeal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appeal resolved",
		zap.Int64("appeal_id", appealID),
		zap.Int64("moderator_id", moderatorID),
		zap.Bool("approved", approve),
	)
	return resolved, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*appealdomain.Appeal, error) {
	var appeal appealdomain.Appeal
	err := s.db.WithContext(ctx).First(&appeal, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appealdomain.ErrAppealNotFound
		}
		return nil, err
	}
	return &appeal, nil
}
