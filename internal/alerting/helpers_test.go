package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/notification"
	"github.com/alliancehq/alliance-manager/internal/testutil/dbtest"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// fakeClock is a manually advanced Clock whose tickers fire only on Tick.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1), interval: d}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick fires every live ticker once.
func (c *fakeClock) Tick() {
	c.mu.Lock()
	tickers := append([]*fakeTicker(nil), c.tickers...)
	now := c.now
	c.mu.Unlock()
	for _, t := range tickers {
		if !t.isStopped() {
			select {
			case t.ch <- now:
			default:
			}
		}
	}
}

// live returns the tickers that have not been stopped.
func (c *fakeClock) live() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTicker
	for _, t := range c.tickers {
		if !t.isStopped() {
			out = append(out, t)
		}
	}
	return out
}

type fakeTicker struct {
	ch       chan time.Time
	interval time.Duration

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fixture is an engine over a private SQLite database with mocked HTTP.
type fixture struct {
	db       *gorm.DB
	rules    repository.AlertRuleRepository
	configs  repository.NotificationConfigRepository
	alliance repository.AllianceRepository
	clock    *fakeClock
	http     *httpmock.MockTransport
	feed     *AlertFeed
	engine   *Engine
}

var fixtureNow = time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	mt := httpmock.NewMockTransport()
	client := &http.Client{Transport: mt}

	f := &fixture{
		db:       db,
		rules:    repository.NewAlertRuleRepository(db),
		configs:  repository.NewNotificationConfigRepository(db),
		alliance: repository.NewAllianceRepository(db),
		clock:    newFakeClock(fixtureNow),
		http:     mt,
		feed:     NewAlertFeed(testLogger()),
	}
	t.Cleanup(f.feed.Stop)

	f.engine = NewEngine(EngineOptions{
		Rules:     f.rules,
		Configs:   f.configs,
		Alliance:  f.alliance,
		Directory: notification.NewDirectory(notification.Options{HTTPClient: client}),
		Feed:      f.feed,
		Clock:     f.clock,
		Logger:    testLogger(),
		Locale:    "fr",
		Location:  time.UTC,
		Capacity:  100,
	})
	return f
}

func (f *fixture) createRule(t *testing.T, rule entities.AlertRule) *entities.AlertRule {
	t.Helper()
	if rule.Severity == "" {
		rule.Severity = entities.SeverityMedium
	}
	if rule.Channels == nil {
		rule.Channels = []entities.Channel{entities.ChannelInApp}
	}
	require.NoError(t, f.rules.CreateRule(t.Context(), &rule))
	return &rule
}

func (f *fixture) configure(t *testing.T, channel entities.Channel, config string) {
	t.Helper()
	require.NoError(t, f.configs.Upsert(t.Context(), &entities.NotificationConfig{
		Channel:   channel,
		IsEnabled: true,
		Config:    datatypes.JSON(config),
	}))
}

func (f *fixture) addMembers(t *testing.T, n int, power int64, lastActive time.Time) {
	t.Helper()
	for i := range n {
		require.NoError(t, f.db.Create(&entities.Member{
			Pseudo:     fmt.Sprintf("member-%03d", i),
			Level:      20,
			Power:      power,
			Role:       "R1",
			Status:     entities.MemberActive,
			LastActive: lastActive.UTC(),
		}).Error)
	}
}

func (f *fixture) alerts(t *testing.T) []entities.Alert {
	t.Helper()
	alerts, _, err := f.rules.ListAlerts(t.Context(), repository.AlertFilter{})
	require.NoError(t, err)
	return alerts
}

func conditionsJSON(t *testing.T, v map[string]any) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}
