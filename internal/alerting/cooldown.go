package alerting

import (
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// IsInCooldown reports whether rule fired less than its cooldown ago. A rule
// that never fired or has no cooldown is never in cooldown.
func IsInCooldown(rule *entities.AlertRule, now time.Time) bool {
	if rule.LastTriggered == nil || rule.Cooldown <= 0 {
		return false
	}
	return now.Sub(*rule.LastTriggered) < time.Duration(rule.Cooldown)*time.Second
}

// CooldownRemaining returns how long rule stays in cooldown, or zero.
func CooldownRemaining(rule *entities.AlertRule, now time.Time) time.Duration {
	if !IsInCooldown(rule, now) {
		return 0
	}
	return rule.LastTriggered.Add(time.Duration(rule.Cooldown) * time.Second).Sub(now)
}
