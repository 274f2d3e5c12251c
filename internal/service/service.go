package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"projet-5iw/backend/config"
	"projet-5iw/backend/internal/repository"
	"projet-5iw/backend/pkg/storage"
)

// PlanningSettings 由 planning 配置解析出的排课参数
type PlanningSettings struct {
	Policy        ExpansionPolicy
	Slots         Timeslots
	CancelMarker  string
	ImportTimeout time.Duration
}

// NewPlanningSettings 解析并校验排课配置
func NewPlanningSettings(cfg *config.PlanningConfig) (*PlanningSettings, error) {
	policy, err := NewExpansionPolicy(cfg)
	if err != nil {
		return nil, err
	}
	slots, err := ParseTimeslots(cfg.Timeslots)
	if err != nil {
		return nil, err
	}
	if len(slots.Wednesday) == 0 || len(slots.Standard) == 0 {
		return nil, fmt.Errorf("planning.timeslots 不能为空")
	}
	timeout := cfg.ImportTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PlanningSettings{
		Policy:        policy,
		Slots:         slots,
		CancelMarker:  cfg.CancelMarker,
		ImportTimeout: timeout,
	}, nil
}

// Service 所有 Service 的聚合入口
type Service struct {
	Semester SemesterService
	Schedule ScheduleService
	Reader   ScheduleReader
	Closure  ClosureService
	Export   ExportService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	calendar *ClosureCalendar,
	settings *PlanningSettings,
	files storage.FileStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		Semester: NewSemesterService(repo, settings, logger),
		Schedule: NewScheduleService(repo, calendar, settings, files, logger),
		Reader:   NewScheduleReader(repo, calendar, settings, logger),
		Closure:  NewClosureService(calendar),
		Export:   NewExportService(repo, settings, logger),
	}
}
