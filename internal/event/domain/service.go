package domain

import (
	"context"
	"errors"
	"time"
)

type CreateEventRequest struct {
	UserID      int64          `json:"user_id"`
	DirectionID *int64         `json:"direction_id"`
	PointID     *int64         `json:"point_id"`
	Source      string         `json:"source"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload"`
	DedupeKey   string         `json:"dedupe_key"`
	Severity    string         `json:"severity"`
}

type Service interface {
	// Record persists an event immutably. Events sharing a dedupe key are
	// still stored; penalty suppression happens at evaluation.
	Record(ctx context.Context, req CreateEventRequest) (*PenaltyEvent, error)

	// CountSameDay counts events for (user, source) whose occurred_at falls
	// on or after the UTC day start containing day.
	CountSameDay(ctx context.Context, userID int64, source Source, day time.Time) (int64, error)

	// HasDuplicate reports whether any other event shares the dedupe key.
	HasDuplicate(ctx context.Context, dedupeKey string, excludeID int64) (bool, error)

	GetByID(ctx context.Context, id int64) (*PenaltyEvent, error)
}

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidSource   = errors.New("invalid_source")
	ErrInvalidSeverity = errors.New("invalid_severity")
	ErrEventNotFound   = errors.New("event_not_found")
)
