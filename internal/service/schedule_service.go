package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"projet-5iw/backend/internal/dto"
	"projet-5iw/backend/internal/model"
	"projet-5iw/backend/internal/repository"
	pkgerrors "projet-5iw/backend/pkg/errors"
	"projet-5iw/backend/pkg/storage"
)

// ── 排课模块业务错误 ──

var (
	ErrEntryNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "排课条目不存在")
	ErrLinkNotFound       = pkgerrors.New(pkgerrors.ErrNotFound, "该儿童不在源条目中")
	ErrSourceFileNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "该学期尚未导入工作簿")
	ErrAlreadyAtTarget    = pkgerrors.New(pkgerrors.ErrConflict, "该儿童已在目标条目中")
	ErrSameSourceTarget   = pkgerrors.New(pkgerrors.ErrInvalidArgument, "源条目与目标条目相同")
	ErrCrossSemester      = pkgerrors.New(pkgerrors.ErrInvalidArgument, "源条目与目标条目不属于同一学期")
	ErrTargetIsClosure    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "不能将儿童调入闭馆条目")
	ErrEmptyUpload        = pkgerrors.New(pkgerrors.ErrInvalidArgument, "上传文件为空")
)

// ScheduleUpload 上传的工作簿
type ScheduleUpload struct {
	Filename string
	Content  []byte
}

// ScheduleService 排课导入与变更接口
type ScheduleService interface {
	// Import 解析 → 校验 → 展开 → 整学期替换；校验失败返回 *ValidationReport
	Import(ctx context.Context, semesterID string, upload *ScheduleUpload, callerID string) (*dto.CountResponse, error)
	// SourceFile 最近一次导入的原始工作簿
	SourceFile(ctx context.Context, semesterID string) (io.ReadCloser, *model.ScheduleSourceFile, error)
	// Cancel cancel=true 取消（幂等），cancel=false 恢复并召回被调走的儿童
	Cancel(ctx context.Context, entryID string, cancel bool) error
	// RestoreTransferred 将来源为该条目的儿童全部召回
	RestoreTransferred(ctx context.Context, entryID string) (int, error)
	// ReassignAll 调走源条目全部儿童并取消源条目
	ReassignAll(ctx context.Context, sourceID, targetID string) (int, error)
	// ReassignOne 调动单个儿童
	ReassignOne(ctx context.Context, sourceID, childID, targetID string) error
}

type scheduleService struct {
	repo     *repository.Repository
	calendar ClosureChecker
	settings *PlanningSettings
	files    storage.FileStore
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, calendar ClosureChecker, settings *PlanningSettings, files storage.FileStore, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, calendar: calendar, settings: settings, files: files, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Import 上传 → 解析 → 校验 → 展开 → 持久化
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Import(ctx context.Context, semesterID string, upload *ScheduleUpload, callerID string) (*dto.CountResponse, error) {
	if upload == nil || len(upload.Content) == 0 {
		return nil, ErrEmptyUpload
	}

	// 1. 学期与名册
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}
	staff, err := s.repo.Staff.ListScheduled(ctx)
	if err != nil {
		s.logger.Error("查询员工名册失败", zap.Error(err))
		return nil, err
	}
	children, err := s.repo.Child.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询儿童名册失败", zap.Error(err))
		return nil, err
	}

	// 2. 解析与校验（一次性返回全部问题）
	grid, err := ParseWorkbook(bytes.NewReader(upload.Content))
	if err != nil {
		return nil, err
	}
	resolver := NewIdentityResolver(staff, children)
	entries, report := ValidateTemplate(grid, resolver, staff, children, s.settings.Slots)
	if report.HasIssues() {
		s.logger.Info("周模板校验未通过",
			zap.String("semester_id", semesterID),
			zap.Int("issues", len(report.Issues)))
		return nil, report
	}

	// 3. 展开
	occurrences, err := ExpandTemplate(ctx, entries, semester, s.calendar, s.settings.Policy)
	if err != nil {
		return nil, err
	}

	// 4. 保存原始文件（不可猜测的存储名）
	storedName, err := storage.NewSecureName(".xlsx")
	if err != nil {
		return nil, err
	}
	size, err := s.files.Save(ctx, storedName, bytes.NewReader(upload.Content))
	if err != nil {
		s.logger.Error("保存工作簿失败", zap.Error(err))
		return nil, err
	}
	previous, err := s.repo.SourceFile.GetBySemester(ctx, semesterID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.removeFile(storedName)
		return nil, err
	}

	// 5. 整学期替换
	rows, links := buildEntryRows(semesterID, occurrences, callerID)
	source := &model.ScheduleSourceFile{
		SemesterID:   semesterID,
		StoredName:   storedName,
		OriginalName: filepath.Base(upload.Filename),
		SizeBytes:    size,
	}
	source.CreatedBy = &callerID
	source.UpdatedBy = &callerID

	start := time.Now()
	if err := s.replaceSemester(ctx, semesterID, rows, links, source); err != nil {
		s.removeFile(storedName)
		s.logger.Error("替换学期排课失败",
			zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}
	if previous != nil && previous.StoredName != storedName {
		s.removeFile(previous.StoredName)
	}

	s.logger.Info("排课导入完成",
		zap.String("semester_id", semesterID),
		zap.Int("entries", len(rows)),
		zap.Int("links", len(links)),
		zap.Duration("elapsed", time.Since(start)))
	return &dto.CountResponse{Count: len(rows)}, nil
}

// replaceSemester 在一个 SERIALIZABLE 事务内删除旧数据并写入新数据；
// 任何一步失败整体回滚，旧数据保持可查询。
// 请求断开不会中止事务，超时时间单独放宽。
func (s *scheduleService) replaceSemester(ctx context.Context, semesterID string, rows []model.ScheduleEntry, links []model.ScheduleEntryChild, source *model.ScheduleSourceFile) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.ImportTimeout)
	defer cancel()

	return s.repo.Transaction(txCtx, func(tx *repository.Repository) error {
		if err := tx.ScheduleEntry.DeleteBySemester(txCtx, semesterID); err != nil {
			return err
		}
		if err := tx.ScheduleEntry.BatchCreate(txCtx, rows); err != nil {
			return err
		}
		if err := tx.EntryChild.BatchCreate(txCtx, links); err != nil {
			return err
		}
		if source != nil {
			return tx.SourceFile.Upsert(txCtx, source)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func buildEntryRows(semesterID string, occurrences []Occurrence, callerID string) ([]model.ScheduleEntry, []model.ScheduleEntryChild) {
	rows := make([]model.ScheduleEntry, 0, len(occurrences))
	var links []model.ScheduleEntryChild
	for _, o := range occurrences {
		row := model.ScheduleEntry{
			EntryID:    uuid.NewString(),
			SemesterID: semesterID,
			StaffID:    o.StaffID,
			DayOfWeek:  o.DayOfWeek,
			StartAt:    o.Start,
			EndAt:      o.End,
			BaseLabel:  o.Label,
			State:      model.EntryActive,
			IsClosure:  o.IsClosure,
		}
		row.CreatedBy = &callerID
		row.UpdatedBy = &callerID
		rows = append(rows, row)
		for _, childID := range o.ChildIDs {
			links = append(links, model.ScheduleEntryChild{EntryID: row.EntryID, ChildID: childID})
		}
	}
	return rows, links
}

func (s *scheduleService) removeFile(name string) {
	if err := s.files.Delete(context.Background(), name); err != nil {
		s.logger.Warn("删除工作簿失败", zap.String("stored_name", name), zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// SourceFile 下载最近一次导入的工作簿
// ════════════════════════════════════════════════════════════

func (s *scheduleService) SourceFile(ctx context.Context, semesterID string) (io.ReadCloser, *model.ScheduleSourceFile, error) {
	meta, err := s.repo.SourceFile.GetBySemester(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSourceFileNotFound
		}
		s.logger.Error("查询工作簿映射失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, nil, err
	}
	body, err := s.files.Open(ctx, meta.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("工作簿映射存在但文件缺失", zap.String("semester_id", semesterID))
			return nil, nil, ErrSourceFileNotFound
		}
		return nil, nil, err
	}
	return body, meta, nil
}

// ════════════════════════════════════════════════════════════
// Cancel / RestoreTransferred
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Cancel(ctx context.Context, entryID string, cancel bool) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		entry, err := s.getEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if cancel {
			if entry.State == model.EntryCancelled {
				return nil
			}
			return tx.ScheduleEntry.UpdateState(ctx, entryID, model.EntryCancelled)
		}

		// 恢复：无论此前状态如何都召回被调走的儿童
		if entry.State != model.EntryActive {
			if err := tx.ScheduleEntry.UpdateState(ctx, entryID, model.EntryActive); err != nil {
				return err
			}
		}
		restored, err := restoreTransferred(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if restored > 0 {
			s.logger.Info("恢复条目并召回儿童", zap.String("entry_id", entryID), zap.Int("restored", restored))
		}
		return nil
	})
}

func (s *scheduleService) RestoreTransferred(ctx context.Context, entryID string) (int, error) {
	var restored int
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := s.getEntry(ctx, tx, entryID); err != nil {
			return err
		}
		n, err := restoreTransferred(ctx, tx, entryID)
		restored = n
		return err
	})
	return restored, err
}

// restoreTransferred 将 original_entry_id 指向 entryID 的关联移回 entryID 并清除来源
func restoreTransferred(ctx context.Context, tx *repository.Repository, entryID string) (int, error) {
	moved, err := tx.EntryChild.ListByOriginal(ctx, entryID)
	if err != nil {
		return 0, err
	}
	for _, link := range moved {
		if err := tx.EntryChild.Delete(ctx, link.EntryID, link.ChildID); err != nil {
			return 0, err
		}
		if _, err := tx.EntryChild.Get(ctx, entryID, link.ChildID); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		if err := tx.EntryChild.Create(ctx, &model.ScheduleEntryChild{EntryID: entryID, ChildID: link.ChildID}); err != nil {
			return 0, err
		}
	}
	return len(moved), nil
}

// ════════════════════════════════════════════════════════════
// ReassignAll / ReassignOne
// ════════════════════════════════════════════════════════════

func (s *scheduleService) ReassignAll(ctx context.Context, sourceID, targetID string) (int, error) {
	if sourceID == targetID {
		return 0, ErrSameSourceTarget
	}
	var moved int
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		source, _, err := s.getPair(ctx, tx, sourceID, targetID)
		if err != nil {
			return err
		}
		links, err := tx.EntryChild.ListByEntry(ctx, sourceID)
		if err != nil {
			return err
		}
		for _, link := range links {
			ok, err := moveLink(ctx, tx, link, targetID)
			if err != nil {
				return err
			}
			if !ok {
				// 目标已有该儿童：丢弃源关联，源条目仍被清空
				if err := tx.EntryChild.Delete(ctx, link.EntryID, link.ChildID); err != nil {
					return err
				}
				continue
			}
			moved++
		}
		// 批量调动隐含清空并取消源条目
		if source.State != model.EntryCancelled {
			return tx.ScheduleEntry.UpdateState(ctx, sourceID, model.EntryCancelled)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("批量调动儿童",
		zap.String("source", sourceID), zap.String("target", targetID), zap.Int("moved", moved))
	return moved, nil
}

func (s *scheduleService) ReassignOne(ctx context.Context, sourceID, childID, targetID string) error {
	if sourceID == targetID {
		return ErrSameSourceTarget
	}
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, _, err := s.getPair(ctx, tx, sourceID, targetID); err != nil {
			return err
		}
		link, err := tx.EntryChild.Get(ctx, sourceID, childID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}
		ok, err := moveLink(ctx, tx, *link, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyAtTarget
		}
		return nil
	})
}

// moveLink 将关联从其当前条目移到 targetID，来源取已有来源，否则取当前条目；
// 目标已有该儿童时不移动并返回 false
func moveLink(ctx context.Context, tx *repository.Repository, link model.ScheduleEntryChild, targetID string) (bool, error) {
	if _, err := tx.EntryChild.Get(ctx, targetID, link.ChildID); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	origin := link.EntryID
	if link.OriginalEntryID != nil {
		origin = *link.OriginalEntryID
	}
	var provenance *string
	if origin != targetID {
		provenance = &origin
	}

	if err := tx.EntryChild.Delete(ctx, link.EntryID, link.ChildID); err != nil {
		return false, err
	}
	err := tx.EntryChild.Create(ctx, &model.ScheduleEntryChild{
		EntryID:         targetID,
		ChildID:         link.ChildID,
		OriginalEntryID: provenance,
	})
	return err == nil, err
}

func (s *scheduleService) getEntry(ctx context.Context, tx *repository.Repository, id string) (*model.ScheduleEntry, error) {
	entry, err := tx.ScheduleEntry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询排课条目失败", zap.String("entry_id", id), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

// getPair 校验源、目标条目存在且可调动
func (s *scheduleService) getPair(ctx context.Context, tx *repository.Repository, sourceID, targetID string) (*model.ScheduleEntry, *model.ScheduleEntry, error) {
	source, err := s.getEntry(ctx, tx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.getEntry(ctx, tx, targetID)
	if err != nil {
		return nil, nil, err
	}
	if source.SemesterID != target.SemesterID {
		return nil, nil, ErrCrossSemester
	}
	if target.IsClosure {
		return nil, nil, ErrTargetIsClosure
	}
	return source, target, nil
}
