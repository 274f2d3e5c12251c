package model

import "gorm.io/gorm"

// Staff 员工表 — 对应 staff_members（周模板的行）
type Staff struct {
	StaffID   string  `gorm:"type:uuid;primaryKey"       json:"staff_id"`
	FirstName string  `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string  `gorm:"type:varchar(100);not null" json:"last_name"`
	UserID    *string `gorm:"type:uuid"                  json:"user_id,omitempty"`
	// IsScheduled 为 false 的员工不参与周模板（不会报"缺少员工"）
	IsScheduled bool `gorm:"not null;default:true" json:"is_scheduled"`
	BaseModel
}

func (Staff) TableName() string { return "staff_members" }

func (s *Staff) BeforeCreate(*gorm.DB) error {
	ensureID(&s.StaffID)
	return nil
}

// Child 儿童表 — 对应 children
type Child struct {
	ChildID        string `gorm:"type:uuid;primaryKey"       json:"child_id"`
	FirstName      string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string `gorm:"type:varchar(100);not null" json:"last_name"`
	GuardianUserID string `gorm:"type:uuid;not null"         json:"guardian_user_id"`
	BaseModel
}

func (Child) TableName() string { return "children" }

func (c *Child) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ChildID)
	return nil
}
