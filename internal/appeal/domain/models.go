// Package domain contains the appeal workflow model: a user-initiated
// contest of one ledger row, resolved by a moderator.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Appeal struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	LedgerID        snowflake.ID `gorm:"not null;index"`
	UserID          int64        `gorm:"not null"`
	CreatedAt       time.Time    `gorm:"not null"`
	Status          Status       `gorm:"type:text;not null;default:open"`
	ModeratorUserID *int64
	DecisionComment string `gorm:"type:text"`
	DecidedAt       *time.Time
}

// TableName sets the database table name.
func (Appeal) TableName() string { return "appeals" }

type Service interface {
	// Create opens an appeal for a ledger row. At most one open appeal may
	// exist per row.
	Create(ctx context.Context, ledgerID int64, userID int64) (*Appeal, error)

	// Resolve decides an open appeal. Approval waives the referenced ledger
	// row, the only path that nullifies a penalty without deleting history;
	// rejection leaves the row untouched.
	Resolve(ctx context.Context, appealID int64, moderatorID int64, approve bool, comment string) (*Appeal, error)

	GetByID(ctx context.Context, id int64) (*Appeal, error)
}

var (
	ErrAppealNotFound       = errors.New("appeal_not_found")
	ErrAppealAlreadyOpen    = errors.New("appeal_already_open")
	ErrAppealAlreadyDecided = errors.New("appeal_already_decided")
)
