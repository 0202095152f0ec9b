package entities

import "time"

// The alliance tables below are owned by the roster and train screens. The
// alert engine only reads them.

// Member is an alliance member.
type Member struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Pseudo     string    `gorm:"size:100;not null;uniqueIndex" json:"pseudo"`
	Level      int       `gorm:"not null" json:"level"`
	Power      int64     `gorm:"not null" json:"power"`
	Role       string    `gorm:"size:20;not null" json:"role"`
	Status     string    `gorm:"size:20;not null;index" json:"status"`
	LastActive time.Time `gorm:"not null" json:"lastActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (Member) TableName() string {
	return "members"
}

// TrainSlot is a recurring weekly train departure. Day is a lowercase
// English weekday name and DepartureTime is HH:MM.
type TrainSlot struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Day           string  `gorm:"size:10;not null;uniqueIndex" json:"day"`
	DepartureTime string  `gorm:"size:5;not null" json:"departureTime"`
	ConductorID   *uint   `gorm:"index" json:"conductorId"`
	Conductor     *Member `gorm:"foreignKey:ConductorID;constraint:OnDelete:SET NULL" json:"conductor,omitempty"`
}

// TableName returns the table name for GORM.
func (TrainSlot) TableName() string {
	return "train_slots"
}

// TrainInstance is one dated train run. RealDepartureTime may be earlier
// than DepartureTime when the real departure falls after midnight.
type TrainInstance struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Date              time.Time `gorm:"not null;index" json:"date"`
	DayOfWeek         string    `gorm:"size:10;not null" json:"dayOfWeek"`
	DepartureTime     string    `gorm:"size:5;not null" json:"departureTime"`
	RealDepartureTime string    `gorm:"size:5;not null" json:"realDepartureTime"`
	ConductorID       *uint     `gorm:"index" json:"conductorId"`
	Conductor         *Member   `gorm:"foreignKey:ConductorID;constraint:OnDelete:SET NULL" json:"conductor,omitempty"`
	Status            string    `gorm:"size:20;not null;index" json:"status"`
	IsArchived        bool      `gorm:"not null;index" json:"isArchived"`
}

// TableName returns the table name for GORM.
func (TrainInstance) TableName() string {
	return "train_instances"
}

// Event is a scheduled alliance event.
type Event struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Type      string     `gorm:"size:50;not null" json:"type"`
	StartDate time.Time  `gorm:"not null;index" json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// TableName returns the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// All returns every entity for schema migration, in dependency order.
func All() []any {
	return []any{
		&Member{},
		&TrainSlot{},
		&TrainInstance{},
		&Event{},
		&AlertRule{},
		&Alert{},
		&AlertNotification{},
		&NotificationConfig{},
	}
}
