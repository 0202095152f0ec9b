package repository

import (
	"context"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// AlertRuleRepository handles alert rules, the alerts they raise and the
// per-channel delivery audit of those alerts.
type AlertRuleRepository interface {
	// Rule CRUD
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	GetRuleByName(ctx context.Context, name string) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) error
	MarkTriggered(ctx context.Context, id uint, at time.Time) error

	// Bulk operations
	GetActiveRules(ctx context.Context) ([]entities.AlertRule, error)
	DeleteBuiltInRules(ctx context.Context) (int64, error)
	CountRulesByName(ctx context.Context, name string) (int64, error)

	// Alerts
	CreateAlert(ctx context.Context, alert *entities.Alert) error
	GetAlert(ctx context.Context, id uint) (*entities.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error)
	MarkAlertRead(ctx context.Context, id uint) error
	ResolveAlert(ctx context.Context, id uint, at time.Time) error
	DeleteResolvedAlertsBefore(ctx context.Context, before time.Time) (int64, error)

	// Delivery audit
	CreateNotification(ctx context.Context, n *entities.AlertNotification) error
	ListNotifications(ctx context.Context, alertID uint) ([]entities.AlertNotification, error)
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	Type    string
	Active  *bool
	BuiltIn *bool
}

// AlertFilter controls alert listing queries.
type AlertFilter struct {
	RuleID     uint
	Severity   entities.Severity
	Unread     bool
	Unresolved bool
	Limit      int
	Offset     int
}
