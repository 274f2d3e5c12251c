package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Semester      SemesterRepository
	Staff         StaffRepository
	Child         ChildRepository
	Registration  EventRegistrationRepository
	ScheduleEntry ScheduleEntryRepository
	EntryChild    EntryChildRepository
	SourceFile    SourceFileRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		Semester:      NewSemesterRepo(db),
		Staff:         NewStaffRepo(db),
		Child:         NewChildRepo(db),
		Registration:  NewEventRegistrationRepo(db),
		ScheduleEntry: NewScheduleEntryRepo(db),
		EntryChild:    NewEntryChildRepo(db),
		SourceFile:    NewSourceFileRepo(db),
	}
}

// Transaction 在一个事务内执行 fn，fn 返回错误或 panic 时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error, opts ...*sql.TxOptions) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	}, opts...)
}
