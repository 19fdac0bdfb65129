package domain

import (
	"context"
	"errors"
	"time"

	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	"gorm.io/gorm"
)

type Service interface {
	// WithTx returns a view of the service bound to tx, so cap reads and the
	// resulting inserts share one transaction scope.
	WithTx(tx *gorm.DB) Service

	CreateBatch(ctx context.Context, rows []*PenaltyLedger) error

	GetByID(ctx context.Context, id int64) (*PenaltyLedger, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]PenaltyLedger, error)

	// Waive zeroes a row's effect without deleting history.
	Waive(ctx context.Context, id int64, reason string) error
	Reverse(ctx context.Context, id int64, byUserID int64) error

	// Aggregates for cap enforcement. Sums include every row regardless of
	// status, matching how exposure was historically measured.
	SumPointsSince(ctx context.Context, userID int64, policyID int64, since time.Time) (int, error)
	SumAmountSince(ctx context.Context, userID int64, policyID int64, since time.Time) (float64, error)

	// LastAppliedAt derives cooldown state from durable history so it
	// survives restarts and multiple instances.
	LastAppliedAt(ctx context.Context, userID int64, policyID int64, source eventdomain.Source) (*time.Time, error)

	// LatestForUser returns the most recent applied_at across all policies,
	// used for clean-streak computation.
	LatestForUser(ctx context.Context, userID int64) (*time.Time, error)

	// OutstandingPoints sums points of applied-status rows for escalation
	// threshold checks.
	OutstandingPoints(ctx context.Context, userID int64, policyID int64) (int, error)
}

var ErrLedgerNotFound = errors.New("ledger_not_found")
