package app

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/notification"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one alert-check cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			db := rt.store.DB()
			rules := repository.NewAlertRuleRepository(db)
			if _, err := alerting.SeedDefaultRules(ctx, rules, rt.log); err != nil {
				return err
			}

			loc, err := rt.settings.Alerting.Location()
			if err != nil {
				return err
			}
			feed := alerting.NewAlertFeed(rt.log)
			defer feed.Stop()

			client := &http.Client{Timeout: rt.settings.Notifications.HTTPTimeout.Std()}
			engine := alerting.NewEngine(alerting.EngineOptions{
				Rules:     rules,
				Configs:   repository.NewNotificationConfigRepository(db),
				Alliance:  repository.NewAllianceRepository(db),
				Directory: notification.NewDirectory(notification.Options{HTTPClient: client}),
				Feed:      feed,
				Reporter:  rt.reporter,
				Metrics:   rt.metrics,
				Logger:    rt.log,
				Locale:    rt.settings.Alerting.Locale,
				Location:  loc,
				Capacity:  rt.settings.Alerting.AllianceCapacity,
			})

			result, err := engine.RunAlertChecks(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
