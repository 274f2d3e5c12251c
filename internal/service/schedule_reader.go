package service

import (
	"context"
	"errors"
	"html"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projet-5iw/backend/internal/dto"
	"projet-5iw/backend/internal/model"
	"projet-5iw/backend/internal/repository"
	pkgerrors "projet-5iw/backend/pkg/errors"
	"projet-5iw/backend/pkg/jwt"
)

// ── 排课查询业务错误 ──

var (
	ErrStaffNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "员工不存在")
	ErrChildNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "儿童不存在")
	ErrNotGuardian   = pkgerrors.New(pkgerrors.ErrForbidden, "无权查看该儿童的日程")
	ErrNotOwnStaff   = pkgerrors.New(pkgerrors.ErrForbidden, "只能查看自己的日程")
)

// 响应中的时间为当地挂钟时间，不带时区偏移，避免客户端再次换算
const wallClockLayout = "2006-01-02T15:04:05"

// ScheduleReader 排课查询接口
type ScheduleReader interface {
	// StaffSchedule 员工日程；员工角色只能查看自己
	StaffSchedule(ctx context.Context, semesterID, staffID, callerID, callerRole string) ([]dto.ScheduleEntryResponse, error)
	// AggregatedSchedule 整学期全部条目
	AggregatedSchedule(ctx context.Context, semesterID string) ([]dto.ScheduleEntryResponse, error)
	// ChildSchedule 儿童日程：已保存条目 + 已确认的单次活动 + 按日合成的闭馆日
	ChildSchedule(ctx context.Context, semesterID, childID, requesterID string) ([]dto.ScheduleEntryResponse, error)
}

type scheduleReader struct {
	repo     *repository.Repository
	calendar ClosureSource
	settings *PlanningSettings
	logger   *zap.Logger
}

// NewScheduleReader 创建 ScheduleReader 实例
func NewScheduleReader(repo *repository.Repository, calendar ClosureSource, settings *PlanningSettings, logger *zap.Logger) ScheduleReader {
	return &scheduleReader{repo: repo, calendar: calendar, settings: settings, logger: logger}
}

// ════════════════════════════════════════════════════════════
// StaffSchedule / AggregatedSchedule
// ════════════════════════════════════════════════════════════

func (r *scheduleReader) StaffSchedule(ctx context.Context, semesterID, staffID, callerID, callerRole string) ([]dto.ScheduleEntryResponse, error) {
	staff, err := r.repo.Staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		r.logger.Error("查询员工失败", zap.String("staff_id", staffID), zap.Error(err))
		return nil, err
	}
	if callerRole != jwt.RoleAdmin && (staff.UserID == nil || *staff.UserID != callerID) {
		return nil, ErrNotOwnStaff
	}
	if _, err := r.semester(ctx, semesterID); err != nil {
		return nil, err
	}

	entries, err := r.repo.ScheduleEntry.ListBySemesterAndStaff(ctx, semesterID, staffID)
	if err != nil {
		r.logger.Error("查询员工日程失败", zap.String("staff_id", staffID), zap.Error(err))
		return nil, err
	}
	return r.withChildren(ctx, entries)
}

func (r *scheduleReader) AggregatedSchedule(ctx context.Context, semesterID string) ([]dto.ScheduleEntryResponse, error) {
	if _, err := r.semester(ctx, semesterID); err != nil {
		return nil, err
	}
	entries, err := r.repo.ScheduleEntry.ListBySemester(ctx, semesterID)
	if err != nil {
		r.logger.Error("查询学期日程失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}
	return r.withChildren(ctx, entries)
}

// ════════════════════════════════════════════════════════════
// ChildSchedule
// ════════════════════════════════════════════════════════════

func (r *scheduleReader) ChildSchedule(ctx context.Context, semesterID, childID, requesterID string) ([]dto.ScheduleEntryResponse, error) {
	child, err := r.repo.Child.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChildNotFound
		}
		r.logger.Error("查询儿童失败", zap.String("child_id", childID), zap.Error(err))
		return nil, err
	}
	if child.GuardianUserID != requesterID {
		return nil, ErrNotGuardian
	}
	semester, err := r.semester(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	start, end := r.settings.Policy.Window(semester)
	brief := dto.ChildBrief{ID: child.ChildID, FirstName: child.FirstName, LastName: child.LastName}

	// 1. 已保存的条目（只展示本儿童）
	entries, err := r.repo.ScheduleEntry.ListBySemesterAndChild(ctx, semesterID, childID)
	if err != nil {
		r.logger.Error("查询儿童日程失败", zap.String("child_id", childID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		resp := r.toEntryResponse(&entries[i])
		resp.Children = []dto.ChildBrief{brief}
		result = append(result, resp)
	}

	// 2. 已付费 / 免费的单次活动
	regs, err := r.repo.Registration.ListConfirmedByChild(ctx, childID, start, end)
	if err != nil {
		r.logger.Error("查询活动报名失败", zap.String("child_id", childID), zap.Error(err))
		return nil, err
	}
	for _, reg := range regs {
		if reg.Event == nil {
			continue
		}
		result = append(result, dto.ScheduleEntryResponse{
			ID:            reg.Event.EventID,
			DayOfWeek:     isoWeekday(reg.Event.EventDate),
			StartTime:     r.wallClock(reg.Event.StartAt),
			EndTime:       r.wallClock(reg.Event.EndAt),
			ActivityLabel: html.EscapeString(reg.Event.Title),
			Kind:          dto.EntryKindEvent,
			Children:      []dto.ChildBrief{brief},
		})
	}

	// 3. 闭馆日按日合成，与是否导入过排课无关
	window := r.settings.Policy.ClosureWindow
	for _, day := range r.calendar.Closures(ctx, start, end) {
		from, to := window.On(day.Date, r.settings.Policy.Location)
		result = append(result, dto.ScheduleEntryResponse{
			ID:            "closure-" + day.Date.Format(dateLayout),
			DayOfWeek:     isoWeekday(day.Date),
			StartTime:     r.wallClock(from),
			EndTime:       r.wallClock(to),
			ActivityLabel: ClosureLabel(day.Reason),
			Kind:          dto.EntryKindClosure,
			Children:      []dto.ChildBrief{},
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ── 内部辅助方法 ──

func (r *scheduleReader) semester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := r.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		r.logger.Error("查询学期失败", zap.String("semester_id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

// withChildren 批量加载条目关联的儿童
func (r *scheduleReader) withChildren(ctx context.Context, entries []model.ScheduleEntry) ([]dto.ScheduleEntryResponse, error) {
	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].EntryID
	}
	links, err := r.repo.EntryChild.ListByEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	childIDs := make([]string, 0, len(links))
	seen := make(map[string]bool)
	for _, l := range links {
		if !seen[l.ChildID] {
			seen[l.ChildID] = true
			childIDs = append(childIDs, l.ChildID)
		}
	}
	children, err := r.repo.Child.ListByIDs(ctx, childIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]dto.ChildBrief, len(children))
	for _, c := range children {
		byID[c.ChildID] = dto.ChildBrief{ID: c.ChildID, FirstName: c.FirstName, LastName: c.LastName}
	}
	byEntry := make(map[string][]dto.ChildBrief)
	for _, l := range links {
		if c, ok := byID[l.ChildID]; ok {
			byEntry[l.EntryID] = append(byEntry[l.EntryID], c)
		}
	}

	result := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		resp := r.toEntryResponse(&entries[i])
		if kids, ok := byEntry[entries[i].EntryID]; ok {
			resp.Children = kids
		}
		result = append(result, resp)
	}
	return result, nil
}

func (r *scheduleReader) toEntryResponse(e *model.ScheduleEntry) dto.ScheduleEntryResponse {
	kind := dto.EntryKindActivity
	if e.IsClosure {
		kind = dto.EntryKindClosure
	}
	return dto.ScheduleEntryResponse{
		ID:            e.EntryID,
		StaffID:       e.StaffID,
		DayOfWeek:     e.DayOfWeek,
		StartTime:     r.wallClock(e.StartAt),
		EndTime:       r.wallClock(e.EndAt),
		ActivityLabel: e.DisplayLabel(r.settings.CancelMarker),
		State:         string(e.State),
		Kind:          kind,
		Children:      []dto.ChildBrief{},
	}
}

func (r *scheduleReader) wallClock(t time.Time) string {
	return t.In(r.settings.Policy.Location).Format(wallClockLayout)
}

// isoWeekday 1=周一 .. 7=周日
func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}
