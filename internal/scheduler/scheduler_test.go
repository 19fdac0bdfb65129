package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fieldops/penaltyd/internal/clock"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type forgivenessStub struct {
	mu      sync.Mutex
	users   []int64
	decayed map[int64]int
	err     error
}

func newForgivenessStub(users ...int64) *forgivenessStub {
	return &forgivenessStub{users: users, decayed: make(map[int64]int)}
}

func (f *forgivenessStub) AdjustForStreak(ctx context.Context, ledger ledgerdomain.Service, candidate *ledgerdomain.PenaltyLedger, cfg policydomain.Forgiveness) error {
	return nil
}

func (f *forgivenessStub) DecayWeekly(ctx context.Context, userID int64, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.decayed[userID] += points
	return nil
}

func (f *forgivenessStub) UsersWithOutstanding(ctx context.Context) ([]int64, error) {
	return f.users, nil
}

func (f *forgivenessStub) decayedFor(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decayed[userID]
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop(), Clock: clock.NewFakeClock(time.Now())})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceDecaysEveryUser(t *testing.T) {
	stub := newForgivenessStub(1, 2, 3)
	s, err := New(Params{
		Log:            zap.NewNop(),
		Clock:          clock.NewFakeClock(time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)),
		ForgivenessSvc: stub,
		Config:         Config{DecayPoints: 2, JobTimeout: time.Second},
	})
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))

	for _, userID := range []int64{1, 2, 3} {
		assert.Equal(t, 2, stub.decayedFor(userID))
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	stub := newForgivenessStub(1, 2)
	stub.err = assert.AnError
	s, err := New(Params{
		Log:            zap.NewNop(),
		Clock:          clock.NewFakeClock(time.Now()),
		ForgivenessSvc: stub,
	})
	require.NoError(t, err)

	// Per-user failures are logged, not returned.
	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 1, cfg.DecayPoints)

	custom := Config{RunInterval: time.Minute, JobTimeout: 10 * time.Second, DecayPoints: 3}.withDefaults()
	assert.Equal(t, time.Minute, custom.RunInterval)
	assert.Equal(t, 10*time.Second, custom.JobTimeout)
	assert.Equal(t, 3, custom.DecayPoints)
}
