package model

import (
	"time"

	"gorm.io/gorm"
)

// Semester 学期表 — 对应 semesters，定义周模板展开的日期窗口
type Semester struct {
	SemesterID string    `gorm:"type:uuid;primaryKey"       json:"semester_id"`
	Label      string    `gorm:"type:varchar(100);not null" json:"label"`
	StartDate  time.Time `gorm:"type:date;not null"         json:"start_date"`
	EndDate    time.Time `gorm:"type:date;not null"         json:"end_date"`
	BaseModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

func (s *Semester) BeforeCreate(*gorm.DB) error {
	ensureID(&s.SemesterID)
	return nil
}
