// Package domain defines the escalation capability the evaluator invokes
// when penalty thresholds are crossed. The notification transport is
// external; implementations must be safe to call fire-and-forget.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Notifier interface {
	Warn(ctx context.Context, userID int64, reason string) error
	NotifyAdmins(ctx context.Context, message string) error
	StartProbation(ctx context.Context, userID int64, days int, reason string) error
	SuggestSuspension(ctx context.Context, userID int64, summary string) error
}

// Probation is the record escalation writes when it places a user on
// probation.
type Probation struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	UserID         int64        `gorm:"not null;index"`
	StartedAt      time.Time    `gorm:"not null"`
	EndsAt         time.Time    `gorm:"not null"`
	Reason         string       `gorm:"type:text"`
	PolicySnapshot datatypes.JSONMap
	IsActive       bool `gorm:"not null;default:true"`
}

// TableName sets the database table name.
func (Probation) TableName() string { return "probations" }
