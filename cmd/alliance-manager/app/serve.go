package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	api "github.com/alliancehq/alliance-manager/internal/api/v2"
	"github.com/alliancehq/alliance-manager/internal/auth"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the alert scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	rt, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	db := rt.store.DB()
	rules := repository.NewAlertRuleRepository(db)
	configs := repository.NewNotificationConfigRepository(db)

	svc, err := alerting.Initialize(ctx, alerting.Dependencies{
		Settings: rt.settings,
		Rules:    rules,
		Configs:  configs,
		Alliance: repository.NewAllianceRepository(db),
		Metrics:  rt.metrics,
		Reporter: rt.reporter,
		Logger:   rt.log,
	})
	if err != nil {
		return err
	}
	defer svc.Stop()

	authSvc, err := auth.NewService(auth.Config{
		AdminUser:         rt.settings.WebServer.AdminUser,
		AdminPasswordHash: rt.settings.WebServer.AdminPasswordHash,
		SessionSecret:     rt.settings.WebServer.SessionSecret,
		SecureCookies:     rt.settings.Environment == "production",
	}, rt.log)
	if err != nil {
		return err
	}

	e := api.NewEcho()
	api.New(e, api.Options{
		Rules:    rules,
		Configs:  configs,
		Alerting: svc,
		Auth:     authSvc,
		Gatherer: rt.registry,
		Logger:   rt.log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.log.Info("http server listening", logger.String("address", rt.settings.WebServer.Listen))
		if err := e.Start(rt.settings.WebServer.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
