package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/penaltyd/internal/clock"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	"github.com/fieldops/penaltyd/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) eventdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("event.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req eventdomain.CreateEventRequest) (*eventdomain.PenaltyEvent, error) {
	if req.UserID == 0 {
		return nil, eventdomain.ErrInvalidUser
	}
	source, ok := eventdomain.ParseSource(strings.TrimSpace(req.Source))
	if !ok {
		return nil, eventdomain.ErrInvalidSource
	}
	severity, err := normalizeSeverity(req.Severity)
	if err != nil {
		return nil, err
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.clock.Now()
	}

	record := &eventdomain.PenaltyEvent{
		ID:          s.genID.Generate(),
		OccurredAt:  occurredAt.UTC(),
		UserID:      req.UserID,
		DirectionID: req.DirectionID,
		PointID:     req.PointID,
		Source:      source,
		DedupeKey:   strings.TrimSpace(req.DedupeKey),
		Severity:    severity,
	}
	if req.Payload != nil {
		record.Payload = datatypes.JSONMap(req.Payload)
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EventsIngested.WithLabelValues(string(source)).Inc()
	}
	s.log.Debug("event recorded",
		zap.Int64("user_id", record.UserID),
		zap.String("source", string(record.Source)),
	)
	return record, nil
}

func (s *Service) CountSameDay(ctx context.Context, userID int64, source eventdomain.Source, day time.Time) (int64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	var count int64
	err := s.db.WithContext(ctx).
		Model(&eventdomain.PenaltyEvent{}).
		Where("user_id = ? AND source = ? AND occurred_at >= ?", userID, source, start).
		Count(&count).Error
	return count, err
}

func (s *Service) HasDuplicate(ctx context.Context, dedupeKey string, excludeID int64) (bool, error) {
	if dedupeKey == "" {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&eventdomain.PenaltyEvent{}).
		Where("dedupe_key = ? AND id <> ?", dedupeKey, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) GetByID(ctx context.Context, id int64) (*eventdomain.PenaltyEvent, error) {
	var record eventdomain.PenaltyEvent
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eventdomain.ErrEventNotFound
		}
		return nil, err
	}
	return &record, nil
}

func normalizeSeverity(raw string) (eventdomain.Severity, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch eventdomain.Severity(value) {
	case eventdomain.SeverityLow, eventdomain.SeverityMedium, eventdomain.SeverityHigh, eventdomain.SeverityCritical:
		return eventdomain.Severity(value), nil
	case "":
		return eventdomain.SeverityLow, nil
	default:
		return "", eventdomain.ErrInvalidSeverity
	}
}
