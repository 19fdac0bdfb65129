// Package domain contains the penalty ledger, the system of record for
// applied penalties.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusApplied  Status = "applied"
	StatusWaived   Status = "waived"
	StatusReversed Status = "reversed"
)

// PenaltyLedger is one immutable consequence row per applied rule match.
// Points and amount already reflect per-occurrence and aggregate caps; the
// only permitted mutation after insert is the status transition performed by
// the appeal workflow or an explicit reversal. Rows are never deleted.
type PenaltyLedger struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	EventID  snowflake.ID `gorm:"not null;index"`
	UserID   int64        `gorm:"not null;index:idx_penalty_ledger_user_applied,priority:1"`
	PolicyID snowflake.ID `gorm:"not null;index"`
	// Source snapshots the originating event's source so cooldown lookups
	// stay a plain indexed query.
	Source           eventdomain.Source `gorm:"type:text;not null"`
	AppliedAt        time.Time          `gorm:"not null;index:idx_penalty_ledger_user_applied,priority:2"`
	Points           int                `gorm:"not null;default:0"`
	Amount           *float64           `gorm:"type:numeric(10,2)"`
	Reasons          datatypes.JSONSlice[string]
	Status           Status `gorm:"type:text;not null;default:applied"`
	WaiverReason     string `gorm:"type:text"`
	ReversedByUserID *int64
}

// TableName sets the database table name.
func (PenaltyLedger) TableName() string { return "penalty_ledger" }
