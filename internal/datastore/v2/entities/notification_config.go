package entities

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationConfig holds the credentials of one delivery channel:
// {"webhookUrl"} for Discord, {"botToken","chatId"} for Telegram and
// {"url"} (a shoutrrr smtp:// URL) for email. Several rows may exist for a
// channel; the first enabled one by ID is the one used.
type NotificationConfig struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Channel        Channel        `gorm:"size:20;not null;index" json:"channel"`
	IsEnabled      bool           `gorm:"not null" json:"isEnabled"`
	Config         datatypes.JSON `json:"config"`
	LastTest       *time.Time     `json:"lastTest"`
	LastTestStatus TestStatus     `gorm:"size:10" json:"lastTestStatus"`
	LastTestError  *string        `gorm:"type:text" json:"lastTestError"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (NotificationConfig) TableName() string {
	return "notification_configs"
}
