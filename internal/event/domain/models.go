// Package domain contains persistence models for behavioral event intake.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Source classifies the behavior that produced an event. The set matches
// the upstream collaborators that emit them (check-in, media verification,
// task, receiving and procurement flows).
type Source string

const (
	SourceLate              Source = "late"
	SourceMissedCheckin     Source = "missed_checkin"
	SourceGeofenceFail      Source = "geofence_fail"
	SourceMediaBlur         Source = "media_blur"
	SourceMediaDuplicate    Source = "media_duplicate"
	SourceFaceMismatch      Source = "face_mismatch"
	SourceTaskReject        Source = "task_reject"
	SourceTaskOverdue       Source = "task_overdue"
	SourceVerifySLABreach   Source = "verify_sla_breach"
	SourceReceivingDelay    Source = "receiving_delay"
	SourceReceivingMismatch Source = "receiving_mismatch"
	SourceProcurementDup    Source = "procurement_dup"
	SourceAnomalySalesStock Source = "anomaly_sales_stock"
)

var knownSources = map[Source]struct{}{
	SourceLate:              {},
	SourceMissedCheckin:     {},
	SourceGeofenceFail:      {},
	SourceMediaBlur:         {},
	SourceMediaDuplicate:    {},
	SourceFaceMismatch:      {},
	SourceTaskReject:        {},
	SourceTaskOverdue:       {},
	SourceVerifySLABreach:   {},
	SourceReceivingDelay:    {},
	SourceReceivingMismatch: {},
	SourceProcurementDup:    {},
	SourceAnomalySalesStock: {},
}

// ParseSource validates a raw source string.
func ParseSource(raw string) (Source, bool) {
	s := Source(raw)
	_, ok := knownSources[s]
	return s, ok
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PenaltyEvent is an immutable fact describing a user's qualifying behavior.
// Rows are write-once and retained forever for audit and aggregation.
type PenaltyEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	OccurredAt  time.Time         `gorm:"not null;index:idx_penalty_events_user_time,priority:2"`
	UserID      int64             `gorm:"not null;index:idx_penalty_events_user_time,priority:1"`
	DirectionID *int64            `gorm:"index"`
	PointID     *int64            `gorm:"index"`
	Source      Source            `gorm:"type:text;not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb"`
	DedupeKey   string            `gorm:"type:text;index"`
	Severity    Severity          `gorm:"type:text;not null;default:low"`
}

// TableName sets the database table name.
func (PenaltyEvent) TableName() string { return "penalty_events" }
