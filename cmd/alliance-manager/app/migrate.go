package app

import (
	"github.com/spf13/cobra"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// bootstrap applies the schema.
			rt, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			if !seed {
				rt.log.Info("schema is up to date")
				return nil
			}
			created, err := alerting.SeedDefaultRules(cmd.Context(), repository.NewAlertRuleRepository(rt.store.DB()), rt.log)
			if err != nil {
				return err
			}
			rt.log.Info("schema is up to date", logger.Int("default_rules_created", created))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "create missing built-in alert rules")
	return cmd
}
