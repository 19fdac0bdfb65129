package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/penaltyd/internal/clock"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ledgerEnv struct {
	svc  ledgerdomain.Service
	db   *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
}

func setupLedger(t *testing.T) *ledgerEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.PenaltyLedger{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC))

	svc := New(Params{DB: db, Log: zap.NewNop(), Clock: clk})
	return &ledgerEnv{svc: svc, db: db, node: node, clk: clk}
}

func (e *ledgerEnv) seed(t *testing.T, userID int64, policyID snowflake.ID, source eventdomain.Source, points int, amount *float64, appliedAt time.Time, status ledgerdomain.Status) snowflake.ID {
	t.Helper()
	row := &ledgerdomain.PenaltyLedger{
		ID:        e.node.Generate(),
		EventID:   e.node.Generate(),
		UserID:    userID,
		PolicyID:  policyID,
		Source:    source,
		AppliedAt: appliedAt,
		Points:    points,
		Amount:    amount,
		Status:    status,
	}
	require.NoError(t, e.db.Create(row).Error)
	return row.ID
}

func TestSumPointsSince(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	now := e.clk.Now()

	e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, now.Add(-48*time.Hour), ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 3, nil, now.Add(-time.Hour), ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 2, nil, now, ledgerdomain.StatusApplied)
	e.seed(t, 2, policyID, eventdomain.SourceLate, 9, nil, now, ledgerdomain.StatusApplied)

	sum, err := e.svc.SumPointsSince(context.Background(), 1, int64(policyID), now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
}

func TestSumAmountSince(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	now := e.clk.Now()
	a1, a2 := 40.0, 25.5

	e.seed(t, 1, policyID, eventdomain.SourceReceivingDelay, 0, &a1, now.Add(-time.Hour), ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceReceivingDelay, 0, &a2, now, ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceReceivingDelay, 0, nil, now, ledgerdomain.StatusApplied)

	sum, err := e.svc.SumAmountSince(context.Background(), 1, int64(policyID), now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 65.5, sum, 0.001)
}

func TestLastAppliedAtPerSource(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	now := e.clk.Now()

	e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, now.Add(-2*time.Hour), ledgerdomain.StatusApplied)
	latest := now.Add(-30 * time.Minute)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, latest, ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceGeofenceFail, 3, nil, now, ledgerdomain.StatusApplied)

	got, err := e.svc.LastAppliedAt(context.Background(), 1, int64(policyID), eventdomain.SourceLate)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.WithinDuration(t, latest, *got, time.Second)

	got, err = e.svc.LastAppliedAt(context.Background(), 1, int64(policyID), eventdomain.SourceTaskOverdue)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWaiveAndReverse(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	ctx := context.Background()

	waiveID := e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, e.clk.Now(), ledgerdomain.StatusApplied)
	reverseID := e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, e.clk.Now(), ledgerdomain.StatusApplied)

	require.NoError(t, e.svc.Waive(ctx, int64(waiveID), "appeal approved"))
	row, err := e.svc.GetByID(ctx, int64(waiveID))
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusWaived, row.Status)
	assert.Equal(t, "appeal approved", row.WaiverReason)

	require.NoError(t, e.svc.Reverse(ctx, int64(reverseID), 77))
	row, err = e.svc.GetByID(ctx, int64(reverseID))
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusReversed, row.Status)
	require.NotNil(t, row.ReversedByUserID)
	assert.EqualValues(t, 77, *row.ReversedByUserID)

	assert.ErrorIs(t, e.svc.Waive(ctx, 404, "nope"), ledgerdomain.ErrLedgerNotFound)
	assert.ErrorIs(t, e.svc.Reverse(ctx, 404, 77), ledgerdomain.ErrLedgerNotFound)
}

func TestOutstandingPointsExcludesWaived(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	now := e.clk.Now()

	e.seed(t, 1, policyID, eventdomain.SourceLate, 5, nil, now, ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 3, nil, now, ledgerdomain.StatusApplied)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 7, nil, now, ledgerdomain.StatusWaived)
	e.seed(t, 1, policyID, eventdomain.SourceLate, 2, nil, now, ledgerdomain.StatusReversed)

	sum, err := e.svc.OutstandingPoints(context.Background(), 1, int64(policyID))
	require.NoError(t, err)
	assert.Equal(t, 8, sum)
}

func TestListByUser(t *testing.T) {
	e := setupLedger(t)
	policyID := e.node.Generate()
	now := e.clk.Now()

	for i := 0; i < 3; i++ {
		e.seed(t, 1, policyID, eventdomain.SourceLate, i+1, nil, now.Add(time.Duration(i)*time.Minute), ledgerdomain.StatusApplied)
	}

	rows, err := e.svc.ListByUser(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, 3, rows[0].Points)
	assert.Equal(t, 2, rows[1].Points)
}
