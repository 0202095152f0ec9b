// Package metrics exposes Prometheus collectors for the alerting subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Check results recorded on alliance_alert_checks_total.
const (
	ResultTriggered = "triggered"
	ResultNotMet    = "not_met"
	ResultCooldown  = "cooldown"
	ResultError     = "error"
)

// AlertingMetrics holds the alert engine and scheduler collectors.
// A nil *AlertingMetrics is valid and records nothing.
type AlertingMetrics struct {
	checks           *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	schedulerRunning prometheus.Gauge
}

// NewAlertingMetrics creates the collectors and registers them on reg.
func NewAlertingMetrics(reg prometheus.Registerer) (*AlertingMetrics, error) {
	m := &AlertingMetrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alliance_alert_checks_total",
			Help: "Total number of alert rule checks by result",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alliance_alert_notifications_total",
			Help: "Total number of alert notification attempts by channel and status",
		}, []string{"channel", "status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alliance_alert_cycle_duration_seconds",
			Help:    "Duration of a full alert check cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		schedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alliance_alert_scheduler_running",
			Help: "Whether the alert scheduler is running (1) or stopped (0)",
		}),
	}

	for _, c := range []prometheus.Collector{m.checks, m.notifications, m.cycleDuration, m.schedulerRunning} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordCheck counts one rule check outcome.
func (m *AlertingMetrics) RecordCheck(result string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(result).Inc()
}

// RecordNotification counts one channel delivery attempt.
func (m *AlertingMetrics) RecordNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

func (m *AlertingMetrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *AlertingMetrics) SetSchedulerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.schedulerRunning.Set(1)
		return
	}
	m.schedulerRunning.Set(0)
}
