package alerting

import (
	"context"
	"encoding/json"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

type defaultRule struct {
	alertType AlertType
	severity  entities.Severity
	cooldown  int
}

var defaultRuleSet = []defaultRule{
	{TypeTrainCoverage, entities.SeverityMedium, 6 * 3600},
	{TypeInactiveMembers, entities.SeverityLow, 24 * 3600},
	{TypeMissingConductor, entities.SeverityHigh, 12 * 3600},
	{TypeMemberThreshold, entities.SeverityMedium, 24 * 3600},
	{TypePowerThreshold, entities.SeverityLow, 24 * 3600},
	{TypeEventReminder, entities.SeverityMedium, 12 * 3600},
	{TypeTrainDeparture, entities.SeverityHigh, 3600},
	{TypeManualMessage, entities.SeverityLow, 0},
}

// DefaultRules returns one inactive built-in rule per template, with the
// template's default conditions. Admins enable and tune them.
func DefaultRules() []entities.AlertRule {
	rules := make([]entities.AlertRule, 0, len(defaultRuleSet))
	for _, d := range defaultRuleSet {
		tpl, _ := GetTemplate(d.alertType)
		conditions, _ := json.Marshal(tpl.DefaultConditions)
		rules = append(rules, entities.AlertRule{
			Name:       tpl.Name,
			Type:       string(d.alertType),
			IsActive:   false,
			BuiltIn:    true,
			Conditions: conditions,
			Severity:   d.severity,
			Channels:   []entities.Channel{entities.ChannelInApp},
			Cooldown:   d.cooldown,
		})
	}
	return rules
}

// SeedDefaultRules creates the default rules that do not exist yet. Rules
// are matched by name so a partial seed heals on the next start.
func SeedDefaultRules(ctx context.Context, repo repository.AlertRuleRepository, log logger.Logger) (int, error) {
	existing, err := repo.ListRules(ctx, repository.AlertRuleFilter{})
	if err != nil {
		return 0, err
	}

	existingNames := make(map[string]struct{}, len(existing))
	for i := range existing {
		existingNames[existing[i].Name] = struct{}{}
	}

	defaults := DefaultRules()
	var created int
	for i := range defaults {
		if _, exists := existingNames[defaults[i].Name]; exists {
			continue
		}
		if err := repo.CreateRule(ctx, &defaults[i]); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default alert rules", logger.Int("created", created))
	}
	return created, nil
}

// ResetDefaultRules deletes the built-in rules, with their alerts, and seeds
// them again.
func ResetDefaultRules(ctx context.Context, repo repository.AlertRuleRepository, log logger.Logger) (deleted int64, created int, err error) {
	deleted, err = repo.DeleteBuiltInRules(ctx)
	if err != nil {
		return 0, 0, err
	}
	created, err = SeedDefaultRules(ctx, repo, log)
	if err != nil {
		return deleted, created, err
	}
	log.Info("default alert rules reset",
		logger.Int64("deleted", deleted),
		logger.Int("created", created))
	return deleted, created, nil
}
