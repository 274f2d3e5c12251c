package model

import (
	"time"

	"gorm.io/gorm"
)

// 报名状态
const (
	RegistrationPending   = "pending"
	RegistrationPaid      = "paid"
	RegistrationFree      = "free"
	RegistrationCancelled = "cancelled"
)

// Event 单次活动（周六外出等）— 对应 events
type Event struct {
	EventID   string    `gorm:"type:uuid;primaryKey"       json:"event_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	EventDate time.Time `gorm:"type:date;not null"         json:"event_date"`
	StartAt   time.Time `gorm:"not null"                   json:"start_at"`
	EndAt     time.Time `gorm:"not null"                   json:"end_at"`
	BaseModel
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.EventID)
	return nil
}

// EventRegistration 活动报名 — 对应 event_registrations
type EventRegistration struct {
	RegistrationID string `gorm:"type:uuid;primaryKey"                        json:"registration_id"`
	EventID        string `gorm:"type:uuid;not null"                          json:"event_id"`
	ChildID        string `gorm:"type:uuid;not null"                          json:"child_id"`
	Status         string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"` // pending | paid | free | cancelled
	BaseModel

	Event *Event `gorm:"foreignKey:EventID;references:EventID" json:"event,omitempty"`
}

func (EventRegistration) TableName() string { return "event_registrations" }

func (r *EventRegistration) BeforeCreate(*gorm.DB) error {
	ensureID(&r.RegistrationID)
	return nil
}
