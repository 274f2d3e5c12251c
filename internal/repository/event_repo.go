package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projet-5iw/backend/internal/model"
)

// EventRegistrationRepository 单次活动报名访问接口
type EventRegistrationRepository interface {
	// ListConfirmedByChild 返回儿童在 [from, to] 内已付费或免费的报名（含活动信息）
	ListConfirmedByChild(ctx context.Context, childID string, from, to time.Time) ([]model.EventRegistration, error)
}

type eventRegistrationRepo struct {
	db *gorm.DB
}

func NewEventRegistrationRepo(db *gorm.DB) EventRegistrationRepository {
	return &eventRegistrationRepo{db: db}
}

func (r *eventRegistrationRepo) ListConfirmedByChild(ctx context.Context, childID string, from, to time.Time) ([]model.EventRegistration, error) {
	var regs []model.EventRegistration
	err := r.db.WithContext(ctx).
		Joins("Event").
		Where("event_registrations.child_id = ?", childID).
		Where("event_registrations.status IN ?", []string{model.RegistrationPaid, model.RegistrationFree}).
		Where(`"Event".event_date BETWEEN ? AND ?`, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order(`"Event".start_at`).
		Find(&regs).Error
	return regs, err
}
