package repository

import (
	"context"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// NotificationConfigRepository stores channel credentials and test results.
type NotificationConfigRepository interface {
	List(ctx context.Context) ([]entities.NotificationConfig, error)
	ListEnabled(ctx context.Context) ([]entities.NotificationConfig, error)
	GetByChannel(ctx context.Context, channel entities.Channel) (*entities.NotificationConfig, error)
	// Upsert updates the first row of cfg.Channel or creates one.
	Upsert(ctx context.Context, cfg *entities.NotificationConfig) error
	UpdateTestResult(ctx context.Context, channel entities.Channel, status entities.TestStatus, testErr *string, at time.Time) error
}
