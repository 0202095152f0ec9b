package entities

import (
	"time"

	"gorm.io/datatypes"
)

// AlertRule is an admin-configured check evaluated by the alert engine.
// Conditions holds the raw JSON object for the rule's Type; the engine
// decodes it into the typed condition struct of that type.
type AlertRule struct {
	ID            uint                         `gorm:"primaryKey" json:"id"`
	Name          string                       `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description   string                       `gorm:"size:2000" json:"description"`
	Type          string                       `gorm:"size:50;not null;index" json:"type"`
	IsActive      bool                         `gorm:"not null;index" json:"isActive"`
	BuiltIn       bool                         `gorm:"not null" json:"builtIn"`
	Conditions    datatypes.JSON               `json:"conditions"`
	Severity      Severity                     `gorm:"size:20;not null" json:"severity"`
	Channels      datatypes.JSONSlice[Channel] `json:"channels"`
	Cooldown      int                          `gorm:"not null" json:"cooldown"` // seconds
	LastTriggered *time.Time                   `json:"lastTriggered"`
	CreatedAt     time.Time                    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                    `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}
