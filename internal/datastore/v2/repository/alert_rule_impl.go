package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

// alertRuleRepository implements AlertRuleRepository.
type alertRuleRepository struct {
	db *gorm.DB
}

// NewAlertRuleRepository creates a new AlertRuleRepository.
func NewAlertRuleRepository(db *gorm.DB) AlertRuleRepository {
	return &alertRuleRepository{db: db}
}

// ListRules returns alert rules matching the given filter, oldest first.
func (r *alertRuleRepository) ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error) {
	var rules []entities.AlertRule
	query := r.db.WithContext(ctx)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.BuiltIn != nil {
		query = query.Where("built_in = ?", *filter.BuiltIn)
	}

	if err := query.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// GetRule returns ErrAlertRuleNotFound if the rule does not exist.
func (r *alertRuleRepository) GetRule(ctx context.Context, id uint) (*entities.AlertRule, error) {
	var rule entities.AlertRule
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule %d: %w", id, err)
	}
	return &rule, nil
}

func (r *alertRuleRepository) GetRuleByName(ctx context.Context, name string) (*entities.AlertRule, error) {
	var rule entities.AlertRule
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule %q: %w", name, err)
	}
	return &rule, nil
}

func (r *alertRuleRepository) CreateRule(ctx context.Context, rule *entities.AlertRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// UpdateRule saves the editable columns of rule, zero values included.
// last_triggered and created_at are owned by the store and refreshed into
// rule afterwards, so a copy loaded before a concurrent trigger cannot
// clear its cooldown.
func (r *alertRuleRepository) UpdateRule(ctx context.Context, rule *entities.AlertRule) error {
	if rule.ID == 0 {
		return fmt.Errorf("failed to update alert rule: missing rule ID")
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit("last_triggered", "created_at").Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update alert rule %d: %w", rule.ID, err)
	}
	if err := db.Select("last_triggered", "created_at").Where("id = ?", rule.ID).Take(rule).Error; err != nil {
		return fmt.Errorf("failed to reload alert rule %d: %w", rule.ID, err)
	}
	return nil
}

// DeleteRule deletes a rule; its alerts and their audit rows go with it.
func (r *alertRuleRepository) DeleteRule(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlertRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

func (r *alertRuleRepository) ToggleRule(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// MarkTriggered sets last_triggered. It is the only column the engine writes on a rule.
func (r *alertRuleRepository) MarkTriggered(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("id = ?", id).Update("last_triggered", at.UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to mark alert rule %d triggered: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

func (r *alertRuleRepository) GetActiveRules(ctx context.Context) ([]entities.AlertRule, error) {
	active := true
	return r.ListRules(ctx, AlertRuleFilter{Active: &active})
}

func (r *alertRuleRepository) DeleteBuiltInRules(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("built_in = ?", true).Delete(&entities.AlertRule{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete built-in alert rules: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *alertRuleRepository) CountRulesByName(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rules by name: %w", err)
	}
	return count, nil
}

func (r *alertRuleRepository) CreateAlert(ctx context.Context, alert *entities.Alert) error {
	if err := r.db.WithContext(ctx).Omit("Rule", "Notifications").Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetAlert returns an alert with its rule and delivery rows.
func (r *alertRuleRepository) GetAlert(ctx context.Context, id uint) (*entities.Alert, error) {
	var alert entities.Alert
	err := r.db.WithContext(ctx).
		Preload("Rule").
		Preload("Notifications", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&alert, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

// ListAlerts returns alerts newest first together with the unpaged total.
func (r *alertRuleRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error) {
	var items []entities.Alert
	var total int64

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.RuleID > 0 {
			q = q.Where("rule_id = ?", filter.RuleID)
		}
		if filter.Severity != "" {
			q = q.Where("severity = ?", filter.Severity)
		}
		if filter.Unread {
			q = q.Where("is_read = ?", false)
		}
		if filter.Unresolved {
			q = q.Where("is_resolved = ?", false)
		}
		return q
	}

	if err := apply(r.db.WithContext(ctx).Model(&entities.Alert{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := apply(r.db.WithContext(ctx).Preload("Rule")).Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return items, total, nil
}

func (r *alertRuleRepository) MarkAlertRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.Alert{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark alert %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ResolveAlert marks an alert resolved (and read) at the given time.
func (r *alertRuleRepository) ResolveAlert(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.Alert{}).Where("id = ?", id).Updates(map[string]any{
		"is_resolved": true,
		"is_read":     true,
		"resolved_at": at.UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// DeleteResolvedAlertsBefore removes resolved alerts created before the cutoff.
func (r *alertRuleRepository) DeleteResolvedAlertsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_resolved = ? AND created_at < ?", true, before.UTC()).
		Delete(&entities.Alert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete resolved alerts before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *alertRuleRepository) CreateNotification(ctx context.Context, n *entities.AlertNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to record %s notification for alert %d: %w", n.Channel, n.AlertID, err)
	}
	return nil
}

func (r *alertRuleRepository) ListNotifications(ctx context.Context, alertID uint) ([]entities.AlertNotification, error) {
	var rows []entities.AlertNotification
	if err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications for alert %d: %w", alertID, err)
	}
	return rows, nil
}
