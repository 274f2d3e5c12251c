package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"projet-5iw/backend/internal/dto"
)

func TestSemesterService_Create(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewSemesterService(repo, testSettings(), zap.NewNop())

	resp, err := svc.Create(context.Background(), &dto.CreateSemesterRequest{
		Label:     "S2",
		StartDate: "2026-02-02",
		EndDate:   "2026-08-31",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.EndDate != "2026-08-31" || resp.EffectiveEndDate != "2026-06-30" {
		t.Errorf("下半学年学期实际截止日应为 06-30，实际 %+v", resp)
	}
	stored := m.semesters.semesters[resp.ID]
	if stored == nil || stored.CreatedBy == nil || *stored.CreatedBy != "admin-1" {
		t.Errorf("学期应保存并记录创建人: %+v", stored)
	}

	resp, err = svc.Create(context.Background(), &dto.CreateSemesterRequest{
		Label:     "S1",
		StartDate: "2025-09-01",
		EndDate:   "2026-01-31",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.EffectiveEndDate != "2026-01-31" {
		t.Errorf("上半学年学期不截断，实际 %s", resp.EffectiveEndDate)
	}
}

func TestSemesterService_CreateInvalidDates(t *testing.T) {
	repo, _ := newMockRepository()
	svc := NewSemesterService(repo, testSettings(), zap.NewNop())

	tests := []struct {
		name       string
		start, end string
	}{
		{"格式错误", "01/09/2025", "2026-01-31"},
		{"结束早于开始", "2026-01-31", "2025-09-01"},
		{"同一天", "2025-09-01", "2025-09-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &dto.CreateSemesterRequest{Label: "X1", StartDate: tt.start, EndDate: tt.end}, "admin-1")
			if !errors.Is(err, ErrSemesterDateInvalid) {
				t.Errorf("期望 ErrSemesterDateInvalid，实际 %v", err)
			}
		})
	}
}

func TestSemesterService_GetAndList(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewSemesterService(repo, testSettings(), zap.NewNop())
	m.semesters.semesters["s1"] = semesterOf(date(2025, 9, 1), date(2026, 1, 31))
	m.semesters.semesters["s1"].SemesterID = "s1"

	got, err := svc.GetByID(context.Background(), "s1")
	if err != nil || got.StartDate != "2025-09-01" {
		t.Fatalf("GetByID 错误: %+v, %v", got, err)
	}
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际 %v", err)
	}

	list, err := svc.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Errorf("List 期望 1 个学期，实际 %d, %v", len(list), err)
	}
}
