package alerting

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/notification"
)

type memRecorder struct {
	mu            sync.Mutex
	notifications []entities.AlertNotification
	alerts        []entities.Alert
	err           error
}

func (m *memRecorder) CreateNotification(_ context.Context, n *entities.AlertNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return m.err
}

func (m *memRecorder) CreateAlert(_ context.Context, a *entities.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.ID = uint(len(m.alerts)) + 1
	m.alerts = append(m.alerts, *a)
	return nil
}

type senderFunc func(ctx context.Context, msg notification.Message) error

func (f senderFunc) Send(ctx context.Context, msg notification.Message) error { return f(ctx, msg) }

type staticSenders map[entities.Channel]notification.Sender

func (s staticSenders) SenderFor(ch entities.Channel) (notification.Sender, error) {
	sender, ok := s[ch]
	if !ok {
		return nil, notification.ErrChannelNotConfigured
	}
	return sender, nil
}

func TestDispatch_AuditRowPerChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.configure(t, entities.ChannelDiscord, `{"webhookUrl":"https://discord.test/hook"}`)
	f.configure(t, entities.ChannelTelegram, `{"botToken":"tok","chatId":"42"}`)
	f.http.RegisterResponder(http.MethodPost, "https://discord.test/hook",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	f.http.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendMessage",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`))
	f.addMembers(t, 45, 1000, fixtureNow)

	rule := f.createRule(t, entities.AlertRule{
		Name:       "Effectif bas",
		Type:       string(TypeMemberThreshold),
		IsActive:   true,
		Conditions: conditionsJSON(t, map[string]any{"threshold": 50, "comparison": "less_than"}),
		Channels:   []entities.Channel{entities.ChannelDiscord, entities.ChannelTelegram, entities.ChannelInApp},
	})
	require.NoError(t, f.engine.Initialize(t.Context()))

	assert.Equal(t, OutcomeTriggered, f.engine.CheckRule(t.Context(), rule))

	alerts := f.alerts(t)
	require.Len(t, alerts, 1)

	rows, err := f.rules.ListNotifications(t.Context(), alerts[0].ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byChannel := map[entities.Channel]entities.AlertNotification{}
	for _, row := range rows {
		byChannel[row.Channel] = row
	}
	assert.Equal(t, entities.DeliveryFailed, byChannel[entities.ChannelDiscord].Status)
	require.NotNil(t, byChannel[entities.ChannelDiscord].Error)
	assert.Contains(t, *byChannel[entities.ChannelDiscord].Error, "500")
	assert.Equal(t, entities.DeliverySent, byChannel[entities.ChannelTelegram].Status)
	assert.Nil(t, byChannel[entities.ChannelTelegram].Error)
	assert.Equal(t, entities.DeliverySent, byChannel[entities.ChannelInApp].Status)

	assert.Equal(t, 1, f.http.GetCallCountInfo()["POST https://discord.test/hook"])
	assert.Equal(t, 1, f.http.GetCallCountInfo()["POST https://api.telegram.org/bottok/sendMessage"])
}

func TestDispatch_UnconfiguredChannelFails(t *testing.T) {
	t.Parallel()
	rec := &memRecorder{}
	d := NewDispatcher(rec, staticSenders{}, newFakeClock(fixtureNow), nil, testLogger())

	results := d.Dispatch(t.Context(), &entities.AlertRule{
		Channels: []entities.Channel{entities.ChannelEmail, entities.ChannelInApp},
	}, &entities.Alert{ID: 7, Title: "t", Message: "m"})

	require.Len(t, results, 2)
	assert.Equal(t, entities.DeliveryFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "not configured")
	assert.Equal(t, entities.DeliverySent, results[1].Status)

	require.Len(t, rec.notifications, 2)
	assert.Equal(t, uint(7), rec.notifications[0].AlertID)
	assert.Equal(t, fixtureNow, rec.notifications[0].SentAt)
}

func TestDispatch_DeduplicatesChannelsInOrder(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var order []string
	sender := func(name string) notification.Sender {
		return senderFunc(func(context.Context, notification.Message) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}
	rec := &memRecorder{}
	d := NewDispatcher(rec, staticSenders{
		entities.ChannelTelegram: sender("telegram"),
		entities.ChannelDiscord:  sender("discord"),
	}, nil, nil, testLogger())

	d.Dispatch(t.Context(), &entities.AlertRule{
		Channels: []entities.Channel{entities.ChannelTelegram, entities.ChannelDiscord, entities.ChannelTelegram},
	}, &entities.Alert{ID: 1})

	assert.Equal(t, []string{"telegram", "discord"}, order)
	assert.Len(t, rec.notifications, 2)
}

func TestDispatch_PanickingSenderIsContained(t *testing.T) {
	t.Parallel()
	rec := &memRecorder{}
	d := NewDispatcher(rec, staticSenders{
		entities.ChannelDiscord: senderFunc(func(context.Context, notification.Message) error { panic("bad sender") }),
		entities.ChannelEmail:   senderFunc(func(context.Context, notification.Message) error { return nil }),
	}, nil, nil, testLogger())

	results := d.Dispatch(t.Context(), &entities.AlertRule{
		Channels: []entities.Channel{entities.ChannelDiscord, entities.ChannelEmail},
	}, &entities.Alert{ID: 1})

	require.Len(t, results, 2)
	assert.Equal(t, entities.DeliveryFailed, results[0].Status)
	assert.Equal(t, entities.DeliverySent, results[1].Status)
	assert.Len(t, rec.notifications, 2)
}

func TestDispatch_RecorderFailureDoesNotStopFanOut(t *testing.T) {
	t.Parallel()
	rec := &memRecorder{err: errors.New("disk full")}
	d := NewDispatcher(rec, staticSenders{}, nil, nil, testLogger())

	results := d.Dispatch(t.Context(), &entities.AlertRule{
		Channels: []entities.Channel{entities.ChannelInApp, entities.ChannelDiscord},
	}, &entities.Alert{ID: 1})
	assert.Len(t, results, 2)
	assert.Len(t, rec.notifications, 2)
}

func TestSendTest_InAppCreatesPrefixedAlertOnly(t *testing.T) {
	t.Parallel()
	var got notification.Message
	rec := &memRecorder{}
	d := NewDispatcher(rec, staticSenders{
		entities.ChannelDiscord: senderFunc(func(_ context.Context, msg notification.Message) error {
			got = msg
			return nil
		}),
	}, nil, nil, testLogger())

	rule := &entities.AlertRule{ID: 3, Channels: []entities.Channel{entities.ChannelDiscord, entities.ChannelInApp}}
	results := d.SendTest(t.Context(), rule, testMessage("Titre", "Corps", entities.SeverityHigh, fixtureNow))

	require.Len(t, results, 2)
	assert.Equal(t, entities.DeliverySent, results[0].Status)
	assert.Equal(t, entities.DeliverySent, results[1].Status)
	assert.Equal(t, "Titre", got.Title)

	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "[TEST] Titre", rec.alerts[0].Title)
	assert.Equal(t, uint(3), rec.alerts[0].RuleID)
	assert.Empty(t, rec.notifications, "test sends are not audited")
}
