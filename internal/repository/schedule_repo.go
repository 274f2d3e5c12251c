package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"projet-5iw/backend/internal/model"
)

// 大学期可达数千行，分批插入
const batchSize = 500

// ScheduleEntryRepository 排课条目数据访问接口
type ScheduleEntryRepository interface {
	BatchCreate(ctx context.Context, entries []model.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleEntry, error)
	ListBySemesterAndStaff(ctx context.Context, semesterID, staffID string) ([]model.ScheduleEntry, error)
	ListBySemesterAndChild(ctx context.Context, semesterID, childID string) ([]model.ScheduleEntry, error)
	UpdateState(ctx context.Context, id string, state model.EntryState) error
	// DeleteBySemester 先删关联再删条目
	DeleteBySemester(ctx context.Context, semesterID string) error
}

// EntryChildRepository 条目-儿童关联数据访问接口
type EntryChildRepository interface {
	BatchCreate(ctx context.Context, links []model.ScheduleEntryChild) error
	Create(ctx context.Context, link *model.ScheduleEntryChild) error
	Get(ctx context.Context, entryID, childID string) (*model.ScheduleEntryChild, error)
	ListByEntry(ctx context.Context, entryID string) ([]model.ScheduleEntryChild, error)
	ListByEntries(ctx context.Context, entryIDs []string) ([]model.ScheduleEntryChild, error)
	ListByOriginal(ctx context.Context, originalEntryID string) ([]model.ScheduleEntryChild, error)
	Delete(ctx context.Context, entryID, childID string) error
}

// SourceFileRepository 原始工作簿映射数据访问接口
type SourceFileRepository interface {
	Upsert(ctx context.Context, file *model.ScheduleSourceFile) error
	GetBySemester(ctx context.Context, semesterID string) (*model.ScheduleSourceFile, error)
}

// ── ScheduleEntry Repository 实现 ──

type scheduleEntryRepo struct {
	db *gorm.DB
}

func NewScheduleEntryRepo(db *gorm.DB) ScheduleEntryRepository {
	return &scheduleEntryRepo{db: db}
}

func (r *scheduleEntryRepo) BatchCreate(ctx context.Context, entries []model.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&entries, batchSize).Error
}

func (r *scheduleEntryRepo) GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		Order("start_at, staff_id").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListBySemesterAndStaff(ctx context.Context, semesterID, staffID string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("semester_id = ? AND staff_id = ?", semesterID, staffID).
		Order("start_at").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListBySemesterAndChild(ctx context.Context, semesterID, childID string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN schedule_entry_children sec ON sec.entry_id = schedule_entries.entry_id").
		Where("schedule_entries.semester_id = ? AND sec.child_id = ?", semesterID, childID).
		Order("schedule_entries.start_at").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) UpdateState(ctx context.Context, id string, state model.EntryState) error {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("entry_id = ?", id).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *scheduleEntryRepo) DeleteBySemester(ctx context.Context, semesterID string) error {
	db := r.db.WithContext(ctx)
	semesterEntries := db.Model(&model.ScheduleEntry{}).
		Select("entry_id").
		Where("semester_id = ?", semesterID)

	// 其他学期的关联可能仍以本学期条目为来源，先断开
	if err := db.Model(&model.ScheduleEntryChild{}).
		Where("original_entry_id IN (?)", semesterEntries).
		Update("original_entry_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("entry_id IN (?)", semesterEntries).
		Delete(&model.ScheduleEntryChild{}).Error; err != nil {
		return err
	}
	return db.Where("semester_id = ?", semesterID).
		Delete(&model.ScheduleEntry{}).Error
}

// ── EntryChild Repository 实现 ──

type entryChildRepo struct {
	db *gorm.DB
}

func NewEntryChildRepo(db *gorm.DB) EntryChildRepository {
	return &entryChildRepo{db: db}
}

func (r *entryChildRepo) BatchCreate(ctx context.Context, links []model.ScheduleEntryChild) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&links, batchSize).Error
}

func (r *entryChildRepo) Create(ctx context.Context, link *model.ScheduleEntryChild) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *entryChildRepo) Get(ctx context.Context, entryID, childID string) (*model.ScheduleEntryChild, error) {
	var link model.ScheduleEntryChild
	err := r.db.WithContext(ctx).
		Where("entry_id = ? AND child_id = ?", entryID, childID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *entryChildRepo) ListByEntry(ctx context.Context, entryID string) ([]model.ScheduleEntryChild, error) {
	var links []model.ScheduleEntryChild
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("child_id").
		Find(&links).Error
	return links, err
}

func (r *entryChildRepo) ListByEntries(ctx context.Context, entryIDs []string) ([]model.ScheduleEntryChild, error) {
	var links []model.ScheduleEntryChild
	if len(entryIDs) == 0 {
		return links, nil
	}
	err := r.db.WithContext(ctx).
		Where("entry_id IN ?", entryIDs).
		Order("entry_id, child_id").
		Find(&links).Error
	return links, err
}

func (r *entryChildRepo) ListByOriginal(ctx context.Context, originalEntryID string) ([]model.ScheduleEntryChild, error) {
	var links []model.ScheduleEntryChild
	err := r.db.WithContext(ctx).
		Where("original_entry_id = ?", originalEntryID).
		Order("child_id").
		Find(&links).Error
	return links, err
}

func (r *entryChildRepo) Delete(ctx context.Context, entryID, childID string) error {
	return r.db.WithContext(ctx).
		Where("entry_id = ? AND child_id = ?", entryID, childID).
		Delete(&model.ScheduleEntryChild{}).Error
}

// ── SourceFile Repository 实现 ──

type sourceFileRepo struct {
	db *gorm.DB
}

func NewSourceFileRepo(db *gorm.DB) SourceFileRepository {
	return &sourceFileRepo{db: db}
}

// Upsert 每个学期只保留最近一次导入的文件映射
func (r *sourceFileRepo) Upsert(ctx context.Context, file *model.ScheduleSourceFile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "semester_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stored_name", "original_name", "size_bytes", "updated_at", "updated_by"}),
		}).
		Create(file).Error
}

func (r *sourceFileRepo) GetBySemester(ctx context.Context, semesterID string) (*model.ScheduleSourceFile, error) {
	var file model.ScheduleSourceFile
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}
