package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projet-5iw/backend/internal/dto"
	"projet-5iw/backend/internal/model"
	"projet-5iw/backend/internal/repository"
	pkgerrors "projet-5iw/backend/pkg/errors"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound    = pkgerrors.New(pkgerrors.ErrNotFound, "学期不存在")
	ErrSemesterDateInvalid = pkgerrors.New(pkgerrors.ErrInvalidArgument, "学期结束日期必须晚于开始日期")
)

const dateLayout = "2006-01-02"

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
}

type semesterService struct {
	repo     *repository.Repository
	settings *PlanningSettings
	logger   *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, settings *PlanningSettings, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, settings: settings, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrSemesterDateInvalid
	}

	semester := &model.Semester{
		Label:     req.Label,
		StartDate: startDate,
		EndDate:   endDate,
	}
	semester.CreatedBy = &callerID
	semester.UpdatedBy = &callerID

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *s.toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *semesterService) toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	_, effectiveEnd := s.settings.Policy.Window(semester)
	return &dto.SemesterResponse{
		ID:               semester.SemesterID,
		Label:            semester.Label,
		StartDate:        semester.StartDate.Format(dateLayout),
		EndDate:          semester.EndDate.Format(dateLayout),
		EffectiveEndDate: effectiveEnd.Format(dateLayout),
		CreatedAt:        semester.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        semester.UpdatedAt.Format(time.RFC3339),
	}
}
