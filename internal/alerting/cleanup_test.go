package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
)

type recordingPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (p *recordingPurger) DeleteResolvedAlertsBefore(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, before)
	return 1, nil
}

func (p *recordingPurger) calls() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.cutoffs...)
}

func TestHistoryCleaner_PurgesOnTick(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newFakeClock(fixtureNow)
	purger := &recordingPurger{}
	cleaner := NewHistoryCleaner(purger, clock, testLogger())

	cleaner.Start(30)
	live := clock.live()
	require.Len(t, live, 1)
	assert.Equal(t, time.Hour, live[0].interval)
	assert.Empty(t, purger.calls(), "no purge before the first tick")

	clock.Tick()
	require.Eventually(t, func() bool { return len(purger.calls()) == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, fixtureNow.AddDate(0, 0, -30), purger.calls()[0])

	cleaner.Start(7)
	assert.Len(t, clock.live(), 1, "restart replaces the running loop")

	cleaner.Stop()
	cleaner.Stop()
	assert.Empty(t, clock.live())
}

func TestHistoryCleaner_DisabledRetention(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newFakeClock(fixtureNow)
	cleaner := NewHistoryCleaner(&recordingPurger{}, clock, testLogger())

	cleaner.Start(0)
	cleaner.Start(-1)
	assert.Empty(t, clock.live())
	cleaner.Stop()
}

func TestHistoryCleaner_PurgeDeletesOnlyOldResolved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	now := time.Now().UTC()

	rule := f.createRule(t, memberThresholdRule(0))
	newAlert := func(resolved bool, age time.Duration) uint {
		a := &entities.Alert{RuleID: rule.ID, Severity: entities.SeverityLow, Title: "t", IsResolved: resolved}
		require.NoError(t, f.rules.CreateAlert(ctx, a))
		require.NoError(t, f.db.Model(a).Update("created_at", now.Add(-age)).Error)
		return a.ID
	}
	oldResolved := newAlert(true, 40*24*time.Hour)
	oldOpen := newAlert(false, 40*24*time.Hour)
	recentResolved := newAlert(true, 24*time.Hour)

	cleaner := NewHistoryCleaner(f.rules, newFakeClock(now), testLogger())
	deleted, err := cleaner.Purge(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = f.rules.GetAlert(ctx, oldResolved)
	require.ErrorIs(t, err, repository.ErrAlertNotFound)
	_, err = f.rules.GetAlert(ctx, oldOpen)
	require.NoError(t, err)
	_, err = f.rules.GetAlert(ctx, recentResolved)
	require.NoError(t, err)
}
