package service

import (
	"context"
	"time"

	"projet-5iw/backend/internal/dto"
	pkgerrors "projet-5iw/backend/pkg/errors"
)

// 单次查询最多一年，防止遍历过大区间
const maxClosureRangeDays = 366

var ErrClosureRangeInvalid = pkgerrors.New(pkgerrors.ErrInvalidArgument, "日期区间无效（格式 YYYY-MM-DD，最长一年）")

// ClosureSource 闭馆日查询能力
type ClosureSource interface {
	ClosureChecker
	Closures(ctx context.Context, from, to time.Time) []ClosureDay
	Location() *time.Location
}

// ClosureService 闭馆日查询接口
type ClosureService interface {
	List(ctx context.Context, q *dto.ClosureQuery) ([]dto.ClosureDayResponse, error)
}

type closureService struct {
	calendar ClosureSource
}

// NewClosureService 创建 ClosureService 实例
func NewClosureService(calendar ClosureSource) ClosureService {
	return &closureService{calendar: calendar}
}

func (s *closureService) List(ctx context.Context, q *dto.ClosureQuery) ([]dto.ClosureDayResponse, error) {
	loc := s.calendar.Location()
	from, err := time.ParseInLocation(dateLayout, q.From, loc)
	if err != nil {
		return nil, ErrClosureRangeInvalid
	}
	to, err := time.ParseInLocation(dateLayout, q.To, loc)
	if err != nil {
		return nil, ErrClosureRangeInvalid
	}
	if to.Before(from) || to.Sub(from) > maxClosureRangeDays*24*time.Hour {
		return nil, ErrClosureRangeInvalid
	}

	days := s.calendar.Closures(ctx, from, to)
	result := make([]dto.ClosureDayResponse, 0, len(days))
	for _, d := range days {
		result = append(result, dto.ClosureDayResponse{
			Date:   d.Date.Format(dateLayout),
			Reason: string(d.Reason),
			Label:  ClosureLabel(d.Reason),
		})
	}
	return result, nil
}
