package alerting

import (
	"context"
	"net/http"

	"github.com/alliancehq/alliance-manager/internal/conf"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/notification"
	"github.com/alliancehq/alliance-manager/internal/observability/metrics"
	"github.com/alliancehq/alliance-manager/internal/observability/telemetry"
)

// Dependencies are the collaborators the alerting service is built from.
type Dependencies struct {
	Settings *conf.Settings
	Rules    repository.AlertRuleRepository
	Configs  repository.NotificationConfigRepository
	Alliance repository.AllianceRepository
	Metrics  *metrics.AlertingMetrics
	Reporter telemetry.Reporter
	Logger   logger.Logger

	// HTTPClient overrides the client used by Discord and Telegram senders.
	HTTPClient *http.Client

	// Clock overrides wall time. Tests only.
	Clock Clock
}

// Service bundles the running parts of the alerting subsystem.
type Service struct {
	Engine    *Engine
	Scheduler *Scheduler
	Feed      *AlertFeed
	Cleaner   *HistoryCleaner
}

// Initialize seeds the default rules, builds the engine and scheduler and
// starts the background loops. The scheduler starts only when the settings
// ask for it.
func Initialize(ctx context.Context, deps Dependencies) (*Service, error) {
	settings := deps.Settings
	log := deps.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}

	if _, err := SeedDefaultRules(ctx, deps.Rules, log); err != nil {
		return nil, err
	}

	loc, err := settings.Alerting.Location()
	if err != nil {
		return nil, err
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: settings.Notifications.HTTPTimeout.Std()}
	}
	directory := notification.NewDirectory(notification.Options{HTTPClient: client})

	feed := NewAlertFeed(log)
	engine := NewEngine(EngineOptions{
		Rules:     deps.Rules,
		Configs:   deps.Configs,
		Alliance:  deps.Alliance,
		Directory: directory,
		Feed:      feed,
		Reporter:  deps.Reporter,
		Metrics:   deps.Metrics,
		Clock:     deps.Clock,
		Logger:    log,
		Locale:    settings.Alerting.Locale,
		Location:  loc,
		Capacity:  settings.Alerting.AllianceCapacity,
	})
	if err := engine.Initialize(ctx); err != nil {
		feed.Stop()
		return nil, err
	}

	scheduler := NewScheduler(SchedulerOptions{
		Runner:          engine,
		Clock:           deps.Clock,
		IntervalMinutes: settings.Alerting.IntervalMinutes,
		Metrics:         deps.Metrics,
		Reporter:        deps.Reporter,
		Logger:          log,
	})

	cleaner := NewHistoryCleaner(deps.Rules, deps.Clock, log)
	cleaner.Start(settings.Alerting.HistoryRetentionDays)

	if settings.ShouldAutoStartAlerts() {
		scheduler.Start()
	}

	log.Info("alerting engine initialized",
		logger.Bool("scheduler_running", scheduler.Status().IsRunning),
		logger.Int("interval_minutes", scheduler.Status().IntervalMinutes))

	return &Service{
		Engine:    engine,
		Scheduler: scheduler,
		Feed:      feed,
		Cleaner:   cleaner,
	}, nil
}

// Stop halts the scheduler, the cleaner and the feed.
func (s *Service) Stop() {
	s.Scheduler.Stop()
	s.Cleaner.Stop()
	s.Feed.Stop()
}
