package repository

import "github.com/alliancehq/alliance-manager/internal/errors"

var (
	ErrAlertRuleNotFound          = errors.NewStd("alert rule not found")
	ErrAlertNotFound              = errors.NewStd("alert not found")
	ErrNotificationConfigNotFound = errors.NewStd("notification config not found")
)
