package app

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alliancehq/alliance-manager/internal/conf"
	datastore "github.com/alliancehq/alliance-manager/internal/datastore/v2"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/observability/metrics"
	"github.com/alliancehq/alliance-manager/internal/observability/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

// services holds what every command that touches the database needs.
type services struct {
	settings *conf.Settings
	log      logger.Logger
	store    *datastore.Manager
	registry *prometheus.Registry
	metrics  *metrics.AlertingMetrics
	reporter telemetry.Reporter
}

func bootstrap(opts *rootOptions) (*services, error) {
	settings, err := conf.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	loc, err := settings.Alerting.Location()
	if err != nil {
		return nil, err
	}
	level := logger.ParseLevel(settings.Logging.Level)
	log := logger.New(os.Stdout, level, settings.Logging.Format, loc)

	var reporter telemetry.Reporter = telemetry.NoopReporter{}
	if settings.Telemetry.Enabled && settings.Telemetry.SentryDSN != "" {
		sr, err := telemetry.NewSentryReporter(telemetry.Options{
			DSN:         settings.Telemetry.SentryDSN,
			Environment: settings.Environment,
			Release:     "alliance-manager@" + Version,
		})
		if err != nil {
			// Error reporting is optional; keep running without it.
			log.Warn("telemetry disabled", logger.Error(err))
		} else {
			reporter = sr
		}
	}

	dbCfg := datastore.ConfigFromSettings(settings)
	dbCfg.Debug = level == logger.LogLevelDebug
	store, err := datastore.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewAlertingMetrics(registry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	log.Info("alliance-manager starting",
		logger.String("version", Version),
		logger.String("environment", settings.Environment),
		logger.String("database", store.Dialect()))

	return &services{
		settings: settings,
		log:      log,
		store:    store,
		registry: registry,
		metrics:  m,
		reporter: reporter,
	}, nil
}

func (r *services) close() {
	r.reporter.Flush(telemetryFlushTimeout)
	if err := r.store.Close(); err != nil {
		r.log.Warn("failed to close database", logger.Error(err))
	}
}
