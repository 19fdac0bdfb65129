// Package domain defines the per-event evaluation contract.
package domain

import (
	"context"
	"errors"

	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
)

type Service interface {
	// Evaluate runs one persisted event against every active policy and
	// returns the ledger rows it created, possibly none. All rows for the
	// event commit atomically; rule-level skip conditions (threshold miss,
	// grace, cooldown, dedupe, cap exhaustion) are normal control flow, not
	// errors.
	Evaluate(ctx context.Context, event *eventdomain.PenaltyEvent) ([]ledgerdomain.PenaltyLedger, error)
}

var ErrNilEvent = errors.New("nil_event")
