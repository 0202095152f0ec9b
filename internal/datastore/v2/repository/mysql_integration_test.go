//go:build integration

package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	v2 "github.com/alliancehq/alliance-manager/internal/datastore/v2"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/testutil/containers"
)

// MySQL test container shared across all tests in this package
var mysqlContainer *containers.MySQLContainer

var allTables = []string{
	"alert_notifications", "alerts", "alert_rules", "notification_configs",
	"train_instances", "train_slots", "events", "members",
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
	if err != nil {
		panic("failed to create MySQL container: " + err.Error())
	}

	code := m.Run()

	if err := mysqlContainer.Terminate(context.Background()); err != nil {
		panic("failed to terminate MySQL container: " + err.Error())
	}
	os.Exit(code)
}

// setupMySQL migrates the schema through the datastore manager and empties
// every table.
func setupMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	db := mysqlContainer.Gorm(t)
	require.NoError(t, v2.NewWithDB(db).Initialize(), "failed to migrate schema")
	require.NoError(t, mysqlContainer.Reset(t.Context(), allTables), "failed to reset database")
	return db
}

func newRule(name string, builtIn bool) *entities.AlertRule {
	return &entities.AlertRule{
		Name:       name,
		Type:       "MEMBER_THRESHOLD",
		IsActive:   true,
		BuiltIn:    builtIn,
		Conditions: datatypes.JSON(`{"threshold":50,"comparison":"less_than"}`),
		Severity:   entities.SeverityHigh,
		Channels:   datatypes.JSONSlice[entities.Channel]{entities.ChannelInApp, entities.ChannelTelegram},
		Cooldown:   3600,
	}
}

func TestMySQL_HealthCheck(t *testing.T) {
	require.NoError(t, mysqlContainer.HealthCheck(t.Context()))
}

func TestMySQL_RuleRoundTrip(t *testing.T) {
	repo := repository.NewAlertRuleRepository(setupMySQL(t))
	ctx := t.Context()

	rule := newRule("Effectif", false)
	require.NoError(t, repo.CreateRule(ctx, rule))

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(rule.Conditions), string(got.Conditions))
	assert.Equal(t, []entities.Channel{entities.ChannelInApp, entities.ChannelTelegram}, []entities.Channel(got.Channels))

	at := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkTriggered(ctx, rule.ID, at))
	got, err = repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastTriggered)
	assert.True(t, at.Equal(*got.LastTriggered), "timestamps round-trip in UTC")

	require.Error(t, repo.CreateRule(ctx, newRule("Effectif", false)), "rule names are unique")
}

func TestMySQL_DeleteBuiltInCascades(t *testing.T) {
	repo := repository.NewAlertRuleRepository(setupMySQL(t))
	ctx := t.Context()

	builtIn := newRule("Défaut", true)
	custom := newRule("Custom", false)
	require.NoError(t, repo.CreateRule(ctx, builtIn))
	require.NoError(t, repo.CreateRule(ctx, custom))

	alert := &entities.Alert{RuleID: builtIn.ID, Severity: entities.SeverityHigh, Title: "Effectif bas"}
	require.NoError(t, repo.CreateAlert(ctx, alert))
	require.NoError(t, repo.CreateNotification(ctx, &entities.AlertNotification{
		AlertID: alert.ID, Channel: entities.ChannelInApp, Status: entities.DeliverySent, SentAt: time.Now().UTC(),
	}))

	deleted, err := repo.DeleteBuiltInRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetAlert(ctx, alert.ID)
	require.ErrorIs(t, err, repository.ErrAlertNotFound, "alerts go with their rule")

	rows, err := repo.ListNotifications(ctx, alert.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMySQL_ConcurrentAlerts(t *testing.T) {
	repo := repository.NewAlertRuleRepository(setupMySQL(t))
	ctx := t.Context()

	rule := newRule("Concurrent", false)
	require.NoError(t, repo.CreateRule(ctx, rule))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Go(func() {
			errs <- repo.CreateAlert(ctx, &entities.Alert{RuleID: rule.ID, Severity: entities.SeverityLow, Title: "t"})
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, total, err := repo.ListAlerts(ctx, repository.AlertFilter{RuleID: rule.ID, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(workers), total)
	assert.Len(t, items, 3)
}

func TestMySQL_NotificationConfigUpsert(t *testing.T) {
	repo := repository.NewNotificationConfigRepository(setupMySQL(t))
	ctx := t.Context()

	require.NoError(t, repo.Upsert(ctx, &entities.NotificationConfig{
		Channel:   entities.ChannelTelegram,
		IsEnabled: true,
		Config:    datatypes.JSON(`{"botToken":"123:abc","chatId":-1001}`),
	}))
	msg := "telegram: chat not found"
	require.NoError(t, repo.UpdateTestResult(ctx, entities.ChannelTelegram, entities.TestFailed, &msg, time.Now().UTC()))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, entities.TestFailed, enabled[0].LastTestStatus)
	assert.JSONEq(t, `{"botToken":"123:abc","chatId":-1001}`, string(enabled[0].Config))
}
