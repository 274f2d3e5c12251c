package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Label     string `json:"label"      binding:"required,min=2,max=100"`
	StartDate string `json:"start_date" binding:"required"` // "2025-09-01"
	EndDate   string `json:"end_date"   binding:"required"` // "2026-01-31"
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	// EffectiveEndDate 实际展开截止日（下半学年截断到学年末）
	EffectiveEndDate string `json:"effective_end_date"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}
