package alerting

import (
	"context"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/notification"
	"github.com/alliancehq/alliance-manager/internal/observability/metrics"
)

// DeliveryRecorder persists delivery audit rows and test in-app alerts.
type DeliveryRecorder interface {
	CreateNotification(ctx context.Context, n *entities.AlertNotification) error
	CreateAlert(ctx context.Context, alert *entities.Alert) error
}

// SenderSource resolves the sender of a channel.
type SenderSource interface {
	SenderFor(channel entities.Channel) (notification.Sender, error)
}

// DeliveryResult is the outcome of one channel delivery.
type DeliveryResult struct {
	Channel entities.Channel        `json:"channel"`
	Status  entities.DeliveryStatus `json:"status"`
	Error   string                  `json:"error,omitempty"`
}

// Dispatcher fans an alert out to the channels of its rule.
type Dispatcher struct {
	recorder DeliveryRecorder
	senders  SenderSource
	clock    Clock
	metrics  *metrics.AlertingMetrics
	log      logger.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(recorder DeliveryRecorder, senders SenderSource, clock Clock, m *metrics.AlertingMetrics, log logger.Logger) *Dispatcher {
	if clock == nil {
		clock = RealClock()
	}
	return &Dispatcher{
		recorder: recorder,
		senders:  senders,
		clock:    clock,
		metrics:  m,
		log:      log,
	}
}

// Dispatch delivers alert on every channel of rule and records exactly one
// audit row per distinct channel. A failing channel never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, rule *entities.AlertRule, alert *entities.Alert) []DeliveryResult {
	msg := notification.Message{
		Title:     alert.Title,
		Body:      alert.Message,
		Severity:  alert.Severity,
		Timestamp: alert.CreatedAt,
	}

	channels := uniqueChannels(rule.Channels)
	results := make([]DeliveryResult, 0, len(channels))
	for _, ch := range channels {
		res := d.deliver(ctx, ch, msg)
		d.record(ctx, alert.ID, res)
		results = append(results, res)
	}
	return results
}

// SendTest delivers a test message on every channel of rule. IN_APP gets a
// prefixed alert row; no audit rows are written.
func (d *Dispatcher) SendTest(ctx context.Context, rule *entities.AlertRule, msg notification.Message) []DeliveryResult {
	channels := uniqueChannels(rule.Channels)
	results := make([]DeliveryResult, 0, len(channels))
	for _, ch := range channels {
		if ch != entities.ChannelInApp {
			results = append(results, d.deliver(ctx, ch, msg))
			continue
		}

		res := DeliveryResult{Channel: ch, Status: entities.DeliverySent}
		alert := &entities.Alert{
			RuleID:   rule.ID,
			Severity: msg.Severity,
			Title:    testTitlePrefix + msg.Title,
			Message:  msg.Body,
		}
		if err := d.recorder.CreateAlert(ctx, alert); err != nil {
			res.Status = entities.DeliveryFailed
			res.Error = err.Error()
		}
		d.metrics.RecordNotification(string(ch), string(res.Status))
		results = append(results, res)
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch entities.Channel, msg notification.Message) (res DeliveryResult) {
	res = DeliveryResult{Channel: ch, Status: entities.DeliverySent}
	defer func() {
		if r := recover(); r != nil {
			res.Status = entities.DeliveryFailed
			res.Error = "sender panicked"
			d.log.Error("notification sender panicked",
				logger.String("channel", string(ch)),
				logger.Any("panic", r))
		}
		d.metrics.RecordNotification(string(ch), string(res.Status))
	}()

	if ch == entities.ChannelInApp {
		return res
	}

	sender, err := d.senders.SenderFor(ch)
	if err == nil {
		err = sender.Send(ctx, msg)
	}
	if err != nil {
		res.Status = entities.DeliveryFailed
		res.Error = err.Error()
		d.log.Warn("notification delivery failed",
			logger.String("channel", string(ch)),
			logger.Error(err))
	}
	return res
}

func (d *Dispatcher) record(ctx context.Context, alertID uint, res DeliveryResult) {
	row := &entities.AlertNotification{
		AlertID: alertID,
		Channel: res.Channel,
		Status:  res.Status,
		SentAt:  d.clock.Now().UTC(),
	}
	if res.Error != "" {
		msg := res.Error
		row.Error = &msg
	}
	if err := d.recorder.CreateNotification(ctx, row); err != nil {
		d.log.Error("failed to record notification",
			logger.Uint64("alert_id", uint64(alertID)),
			logger.String("channel", string(res.Channel)),
			logger.Error(err))
	}
}

func uniqueChannels(in []entities.Channel) []entities.Channel {
	seen := make(map[entities.Channel]struct{}, len(in))
	out := make([]entities.Channel, 0, len(in))
	for _, ch := range in {
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// testMessage builds the message sent by a rule test.
func testMessage(title, body string, severity entities.Severity, at time.Time) notification.Message {
	return notification.Message{Title: title, Body: body, Severity: severity, Timestamp: at}
}
