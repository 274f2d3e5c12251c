package dto

// ── 排课模块 DTO ──

// 条目来源
const (
	EntryKindActivity = "activity"
	EntryKindClosure  = "closure"
	EntryKindEvent    = "event"
)

// ScheduleEntryResponse 排课条目响应
// 时间为当地挂钟时间（无时区偏移），标签已 HTML 转义
type ScheduleEntryResponse struct {
	ID            string       `json:"id"`
	StaffID       string       `json:"staff_id,omitempty"`
	DayOfWeek     int          `json:"day_of_week"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	ActivityLabel string       `json:"activity_label"`
	State         string       `json:"state,omitempty"`
	Kind          string       `json:"kind"`
	Children      []ChildBrief `json:"children"`
}

// CancelEntryRequest 取消 / 恢复条目
type CancelEntryRequest struct {
	Cancel *bool `json:"cancel" binding:"required"`
}

// ReassignRequest 调动儿童；child_id 为空时调动源条目的全部儿童
type ReassignRequest struct {
	TargetEntryID string `json:"target_entry_id" binding:"required,uuid"`
	ChildID       string `json:"child_id"        binding:"omitempty,uuid"`
}

// ClosureQuery 闭馆日查询参数
type ClosureQuery struct {
	From string `form:"from" binding:"required"` // "2026-05-01"
	To   string `form:"to"   binding:"required"`
}

// ClosureDayResponse 闭馆日
type ClosureDayResponse struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Label  string `json:"label"`
}
