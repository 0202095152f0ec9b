package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

func TestIsInCooldown(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	rule := &entities.AlertRule{Cooldown: 60, LastTriggered: &t0}

	assert.True(t, IsInCooldown(rule, t0))
	assert.True(t, IsInCooldown(rule, t0.Add(59*time.Second)))
	assert.False(t, IsInCooldown(rule, t0.Add(60*time.Second)))
	assert.False(t, IsInCooldown(rule, t0.Add(61*time.Second)))

	assert.Equal(t, 20*time.Second, CooldownRemaining(rule, t0.Add(40*time.Second)))
	assert.Zero(t, CooldownRemaining(rule, t0.Add(2*time.Minute)))
}

func TestIsInCooldown_NeverTriggeredOrNoCooldown(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.False(t, IsInCooldown(&entities.AlertRule{Cooldown: 3600}, now))

	last := now.Add(-time.Second)
	assert.False(t, IsInCooldown(&entities.AlertRule{Cooldown: 0, LastTriggered: &last}, now))
	assert.False(t, IsInCooldown(&entities.AlertRule{Cooldown: -5, LastTriggered: &last}, now))
}
