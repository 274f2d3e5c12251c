package model

import (
	"time"

	"gorm.io/gorm"
)

// EntryState 排课条目状态
type EntryState string

const (
	EntryActive    EntryState = "active"
	EntryCancelled EntryState = "cancelled"
)

// ScheduleEntry 排课条目（周模板展开后的具体日期实例）— 对应 schedule_entries
type ScheduleEntry struct {
	EntryID    string     `gorm:"type:uuid;primaryKey"                       json:"entry_id"`
	SemesterID string     `gorm:"type:uuid;not null;index"                   json:"semester_id"`
	StaffID    string     `gorm:"type:uuid;not null"                         json:"staff_id"`
	DayOfWeek  int        `gorm:"type:smallint;not null"                     json:"day_of_week"` // 1=周一 .. 5=周五
	StartAt    time.Time  `gorm:"not null"                                   json:"start_at"`
	EndAt      time.Time  `gorm:"not null"                                   json:"end_at"`
	BaseLabel  string     `gorm:"type:varchar(255);not null"                 json:"base_label"` // 已 HTML 转义
	State      EntryState `gorm:"type:varchar(20);not null;default:'active'" json:"state"`
	IsClosure  bool       `gorm:"not null;default:false"                     json:"is_closure"`
	BaseModel
}

func (ScheduleEntry) TableName() string { return "schedule_entries" }

func (e *ScheduleEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.EntryID)
	return nil
}

// DisplayLabel 展示用标签：取消状态加前缀标记
func (e *ScheduleEntry) DisplayLabel(cancelMarker string) string {
	if e.State == EntryCancelled {
		return cancelMarker + e.BaseLabel
	}
	return e.BaseLabel
}

// ScheduleEntryChild 条目-儿童关联 — 对应 schedule_entry_children
// OriginalEntryID 指向儿童在该时段最初所在的条目，未被调动时为空
type ScheduleEntryChild struct {
	EntryID         string    `gorm:"type:uuid;primaryKey"               json:"entry_id"`
	ChildID         string    `gorm:"type:uuid;primaryKey"               json:"child_id"`
	OriginalEntryID *string   `gorm:"type:uuid;index"                    json:"original_entry_id,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ScheduleEntryChild) TableName() string { return "schedule_entry_children" }

// ScheduleSourceFile 学期最近一次导入的原始工作簿 — 对应 schedule_source_files
type ScheduleSourceFile struct {
	SemesterID   string `gorm:"type:uuid;primaryKey"                json:"semester_id"`
	StoredName   string `gorm:"type:varchar(128);not null;unique"   json:"-"`
	OriginalName string `gorm:"type:varchar(255);not null"          json:"original_name"`
	SizeBytes    int64  `gorm:"not null"                            json:"size_bytes"`
	BaseModel
}

func (ScheduleSourceFile) TableName() string { return "schedule_source_files" }
