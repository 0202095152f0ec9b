package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

type notificationConfigRepository struct {
	db *gorm.DB
}

// NewNotificationConfigRepository creates a new NotificationConfigRepository.
func NewNotificationConfigRepository(db *gorm.DB) NotificationConfigRepository {
	return &notificationConfigRepository{db: db}
}

func (r *notificationConfigRepository) List(ctx context.Context) ([]entities.NotificationConfig, error) {
	var cfgs []entities.NotificationConfig
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&cfgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list notification configs: %w", err)
	}
	return cfgs, nil
}

// ListEnabled returns enabled configs in ID order.
func (r *notificationConfigRepository) ListEnabled(ctx context.Context) ([]entities.NotificationConfig, error) {
	var cfgs []entities.NotificationConfig
	if err := r.db.WithContext(ctx).Where("is_enabled = ?", true).Order("id ASC").Find(&cfgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled notification configs: %w", err)
	}
	return cfgs, nil
}

// GetByChannel returns the first config of a channel by ID.
func (r *notificationConfigRepository) GetByChannel(ctx context.Context, channel entities.Channel) (*entities.NotificationConfig, error) {
	var cfg entities.NotificationConfig
	if err := r.db.WithContext(ctx).Where("channel = ?", channel).Order("id ASC").First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationConfigNotFound
		}
		return nil, fmt.Errorf("failed to get %s notification config: %w", channel, err)
	}
	return &cfg, nil
}

func (r *notificationConfigRepository) Upsert(ctx context.Context, cfg *entities.NotificationConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.NotificationConfig
		err := tx.Where("channel = ?", cfg.Channel).Order("id ASC").First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cfg.ID = 0
			if err := tx.Create(cfg).Error; err != nil {
				return fmt.Errorf("failed to create %s notification config: %w", cfg.Channel, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up %s notification config: %w", cfg.Channel, err)
		}

		err = tx.Model(&existing).Updates(map[string]any{
			"is_enabled": cfg.IsEnabled,
			"config":     cfg.Config,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update %s notification config: %w", cfg.Channel, err)
		}
		existing.IsEnabled = cfg.IsEnabled
		existing.Config = cfg.Config
		*cfg = existing
		return nil
	})
}

func (r *notificationConfigRepository) UpdateTestResult(ctx context.Context, channel entities.Channel, status entities.TestStatus, testErr *string, at time.Time) error {
	cfg, err := r.GetByChannel(ctx, channel)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Model(&entities.NotificationConfig{}).Where("id = ?", cfg.ID).Updates(map[string]any{
		"last_test":        at.UTC(),
		"last_test_status": status,
		"last_test_error":  testErr,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to record %s test result: %w", channel, err)
	}
	return nil
}
