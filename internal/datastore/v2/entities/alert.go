package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Alert records one trigger of a rule. Title, message and data are fixed at
// creation; only the read and resolved flags change afterwards.
type Alert struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	RuleID        uint                `gorm:"not null;index" json:"ruleId"`
	Severity      Severity            `gorm:"size:20;not null" json:"severity"`
	Title         string              `gorm:"size:500;not null" json:"title"`
	Message       string              `gorm:"type:text" json:"message"`
	Data          datatypes.JSON      `json:"data"`
	IsRead        bool                `gorm:"not null;index" json:"isRead"`
	IsResolved    bool                `gorm:"not null;index" json:"isResolved"`
	ResolvedAt    *time.Time          `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time           `gorm:"autoCreateTime;index" json:"createdAt"`
	Rule          *AlertRule          `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"rule,omitempty"`
	Notifications []AlertNotification `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"notifications,omitempty"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}

// AlertNotification is the audit row of one delivery attempt of an alert on
// one channel. Rows are append-only.
type AlertNotification struct {
	ID      uint           `gorm:"primaryKey" json:"id"`
	AlertID uint           `gorm:"not null;index" json:"alertId"`
	Channel Channel        `gorm:"size:20;not null" json:"channel"`
	Status  DeliveryStatus `gorm:"size:10;not null" json:"status"`
	Error   *string        `gorm:"type:text" json:"error"`
	SentAt  time.Time      `gorm:"not null" json:"sentAt"`
}

// TableName returns the table name for GORM.
func (AlertNotification) TableName() string {
	return "alert_notifications"
}
