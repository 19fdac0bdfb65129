// Package domain defines streak-based forgiveness and scheduled point decay.
package domain

import (
	"context"

	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
)

type Service interface {
	// AdjustForStreak reduces a candidate ledger row in place, pre-commit,
	// when the user's clean streak qualifies. It only ever lowers points and
	// amount. The passed ledger view must be bound to the evaluation
	// transaction.
	AdjustForStreak(ctx context.Context, ledger ledgerdomain.Service, candidate *ledgerdomain.PenaltyLedger, cfg policydomain.Forgiveness) error

	// DecayWeekly subtracts a fixed number of points from every applied row
	// of one user. No zero floor: a run can leave rows negative, which acts
	// as a behavior credit consumed by later penalties.
	DecayWeekly(ctx context.Context, userID int64, points int) error

	// UsersWithOutstanding lists users that currently have applied rows,
	// for the batch decay job.
	UsersWithOutstanding(ctx context.Context) ([]int64, error)
}
