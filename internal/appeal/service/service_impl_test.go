package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/fieldops/penaltyd/internal/appeal/domain"
	"github.com/fieldops/penaltyd/internal/clock"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	ledgerservice "github.com/fieldops/penaltyd/internal/ledger/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type appealEnv struct {
	svc  appealdomain.Service
	db   *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
}

func setupAppeals(t *testing.T) *appealEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.PenaltyLedger{}, &appealdomain.Appeal{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	ledgerSvc := ledgerservice.New(ledgerservice.Params{DB: db, Log: log, Clock: clk})
	svc := New(Params{DB: db, Log: log, GenID: node, Clock: clk, LedgerSvc: ledgerSvc})
	return &appealEnv{svc: svc, db: db, node: node, clk: clk}
}

func (e *appealEnv) seedLedger(t *testing.T, userID int64, points int) snowflake.ID {
	t.Helper()
	row := &ledgerdomain.PenaltyLedger{
		ID:        e.node.Generate(),
		EventID:   e.node.Generate(),
		UserID:    userID,
		PolicyID:  e.node.Generate(),
		Source:    eventdomain.SourceLate,
		AppliedAt: e.clk.Now(),
		Points:    points,
		Status:    ledgerdomain.StatusApplied,
	}
	require.NoError(t, e.db.Create(row).Error)
	return row.ID
}

func TestAppealApproveWaivesLedger(t *testing.T) {
	e := setupAppeals(t)
	ctx := context.Background()
	ledgerID := e.seedLedger(t, 9, 5)

	appeal, err := e.svc.Create(ctx, int64(ledgerID), 9)
	require.NoError(t, err)
	assert.Equal(t, appealdomain.StatusOpen, appeal.Status)

	resolved, err := e.svc.Resolve(ctx, int64(appeal.ID), 100, true, "gps outage confirmed")
	require.NoError(t, err)
	assert.Equal(t, appealdomain.StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ModeratorUserID)
	assert.EqualValues(t, 100, *resolved.ModeratorUserID)
	require.NotNil(t, resolved.DecidedAt)

	// The ledger row is waived, never deleted.
	var row ledgerdomain.PenaltyLedger
	require.NoError(t, e.db.First(&row, "id = ?", int64(ledgerID)).Error)
	assert.Equal(t, ledgerdomain.StatusWaived, row.Status)
	assert.Equal(t, "gps outage confirmed", row.WaiverReason)
	assert.Equal(t, 5, row.Points)
}

func TestAppealRejectLeavesLedger(t *testing.T) {
	e := setupAppeals(t)
	ctx := context.Background()
	ledgerID := e.seedLedger(t, 9, 5)

	appeal, err := e.svc.Create(ctx, int64(ledgerID), 9)
	require.NoError(t, err)

	resolved, err := e.svc.Resolve(ctx, int64(appeal.ID), 100, false, "policy applied correctly")
	require.NoError(t, err)
	assert.Equal(t, appealdomain.StatusRejected, resolved.Status)

	var row ledgerdomain.PenaltyLedger
	require.NoError(t, e.db.First(&row, "id = ?", int64(ledgerID)).Error)
	assert.Equal(t, ledgerdomain.StatusApplied, row.Status)
}

func TestAppealSingleOpenPerLedger(t *testing.T) {
	e := setupAppeals(t)
	ctx := context.Background()
	ledgerID := e.seedLedger(t, 9, 5)

	appeal, err := e.svc.Create(ctx, int64(ledgerID), 9)
	require.NoError(t, err)

	_, err = e.svc.Create(ctx, int64(ledgerID), 9)
	assert.ErrorIs(t, err, appealdomain.ErrAppealAlreadyOpen)

	// A decided appeal frees the row for a new one.
	_, err = e.svc.Resolve(ctx, int64(appeal.ID), 100, false, "no")
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, int64(ledgerID), 9)
	require.NoError(t, err)
}

func TestAppealResolveTwice(t *testing.T) {
	e := setupAppeals(t)
	ctx := context.Background()
	ledgerID := e.seedLedger(t, 9, 5)

	appeal, err := e.svc.Create(ctx, int64(ledgerID), 9)
	require.NoError(t, err)

	_, err = e.svc.Resolve(ctx, int64(appeal.ID), 100, true, "ok")
	require.NoError(t, err)
	_, err = e.svc.Resolve(ctx, int64(appeal.ID), 101, false, "again")
	assert.ErrorIs(t, err, appealdomain.ErrAppealAlreadyDecided)
}

func TestAppealUnknownLedger(t *testing.T) {
	e := setupAppeals(t)
	_, err := e.svc.Create(context.Background(), 12345, 9)
	assert.ErrorIs(t, err, ledgerdomain.ErrLedgerNotFound)
}

func TestAppealResolveNotFound(t *testing.T) {
	e := setupAppeals(t)
	_, err := e.svc.Resolve(context.Background(), 12345, 100, true, "ok")
	assert.ErrorIs(t, err, appealdomain.ErrAppealNotFound)
}
