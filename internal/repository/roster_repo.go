package repository

import (
	"context"

	"gorm.io/gorm"

	"projet-5iw/backend/internal/model"
)

// StaffRepository 员工名册访问接口
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*model.Staff, error)
	// ListScheduled 参与周模板的员工
	ListScheduled(ctx context.Context) ([]model.Staff, error)
}

// ChildRepository 儿童名册访问接口
type ChildRepository interface {
	GetByID(ctx context.Context, id string) (*model.Child, error)
	ListAll(ctx context.Context) ([]model.Child, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Child, error)
}

// ── Staff Repository 实现 ──

type staffRepo struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db: db}
}

func (r *staffRepo) GetByID(ctx context.Context, id string) (*model.Staff, error) {
	var staff model.Staff
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", id).
		First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepo) ListScheduled(ctx context.Context) ([]model.Staff, error) {
	var staff []model.Staff
	err := r.db.WithContext(ctx).
		Where("is_scheduled = ?", true).
		Order("last_name, first_name").
		Find(&staff).Error
	return staff, err
}

// ── Child Repository 实现 ──

type childRepo struct {
	db *gorm.DB
}

func NewChildRepo(db *gorm.DB) ChildRepository {
	return &childRepo{db: db}
}

func (r *childRepo) GetByID(ctx context.Context, id string) (*model.Child, error) {
	var child model.Child
	err := r.db.WithContext(ctx).
		Where("child_id = ?", id).
		First(&child).Error
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *childRepo) ListAll(ctx context.Context) ([]model.Child, error) {
	var children []model.Child
	err := r.db.WithContext(ctx).
		Order("last_name, first_name").
		Find(&children).Error
	return children, err
}

func (r *childRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Child, error) {
	var children []model.Child
	if len(ids) == 0 {
		return children, nil
	}
	err := r.db.WithContext(ctx).
		Where("child_id IN ?", ids).
		Order("last_name, first_name").
		Find(&children).Error
	return children, err
}
