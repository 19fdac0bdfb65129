package service

import (
	"context"
	"errors"

	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) policydomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("policy.service"),
	}
}

func (s *Service) ActivePolicies(ctx context.Context) ([]*policydomain.CompiledPolicy, error) {
	var rows []policydomain.Policy
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}

	compiled := make([]*policydomain.CompiledPolicy, 0, len(rows))
	for i := range rows {
		policy, problems := rows[i].Compile()
		for _, problem := range problems {
			s.log.Warn("dropping malformed policy config",
				zap.Int64("policy_id", int64(rows[i].ID)),
				zap.String("policy", rows[i].Name),
				zap.Error(problem),
			)
		}
		compiled = append(compiled, policy)
	}
	return compiled, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*policydomain.Policy, error) {
	var row policydomain.Policy
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, policydomain.ErrPolicyNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Service) List(ctx context.Context) ([]policydomain.Policy, error) {
	var rows []policydomain.Policy
	err := s.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}
