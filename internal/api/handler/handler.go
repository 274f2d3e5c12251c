package handler

import "projet-5iw/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester *SemesterHandler
	Schedule *ScheduleHandler
	Closure  *ClosureHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
// maxUploadBytes 为导入工作簿允许的最大字节数
func NewHandler(svc *service.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		Semester: NewSemesterHandler(svc.Semester),
		Schedule: NewScheduleHandler(svc.Schedule, svc.Reader, maxUploadBytes),
		Closure:  NewClosureHandler(svc.Closure),
		Export:   NewExportHandler(svc.Export),
	}
}
