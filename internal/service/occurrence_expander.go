package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"time"

	"projet-5iw/backend/config"
	"projet-5iw/backend/internal/model"
)

// 闭馆条目的展示标签
var closureLabels = map[ClosureReason]string{
	ClosurePublicHoliday:  "Jour férié",
	ClosureSchoolVacation: "Vacances scolaires",
}

// ClosureLabel 闭馆原因对应的标签（已转义）
func ClosureLabel(reason ClosureReason) string {
	if label, ok := closureLabels[reason]; ok {
		return html.EscapeString(label)
	}
	return html.EscapeString(string(reason))
}

// ClosureChecker 展开时查询闭馆日
type ClosureChecker interface {
	IsClosed(ctx context.Context, date time.Time) (bool, ClosureReason)
}

// ExpansionPolicy 展开规则：截断策略、闭馆时段与时区
type ExpansionPolicy struct {
	Location *time.Location
	// 学期从这些月份开始时，结束日截断到当年学年末
	SecondHalfMonths map[time.Month]bool
	YearEndMonth     time.Month
	YearEndDay       int
	ClosureWindow    Timeslot
}

// NewExpansionPolicy 由配置构造展开规则
func NewExpansionPolicy(cfg *config.PlanningConfig) (ExpansionPolicy, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return ExpansionPolicy{}, fmt.Errorf("planning.timezone: %w", err)
	}
	month, day, err := config.ParseMonthDay(cfg.SchoolYearEnd)
	if err != nil {
		return ExpansionPolicy{}, fmt.Errorf("planning.school_year_end: %w", err)
	}
	window, err := ParseTimeRange(cfg.ClosureWindow)
	if err != nil {
		return ExpansionPolicy{}, fmt.Errorf("planning.closure_window: %w", err)
	}
	months := make(map[time.Month]bool, len(cfg.SecondHalfMonths))
	for _, m := range cfg.SecondHalfMonths {
		months[time.Month(m)] = true
	}
	return ExpansionPolicy{
		Location:         loc,
		SecondHalfMonths: months,
		YearEndMonth:     month,
		YearEndDay:       day,
		ClosureWindow:    window,
	}, nil
}

// Window 返回学期的实际展开区间 [start, end]（当地零点）
func (p ExpansionPolicy) Window(semester *model.Semester) (time.Time, time.Time) {
	start := civilDate(semester.StartDate, p.Location)
	end := civilDate(semester.EndDate, p.Location)
	if p.SecondHalfMonths[start.Month()] {
		yearEnd := time.Date(start.Year(), p.YearEndMonth, p.YearEndDay, 0, 0, 0, 0, p.Location)
		if end.After(yearEnd) {
			end = yearEnd
		}
	}
	return start, end
}

// Occurrence 展开后的具体日期条目
type Occurrence struct {
	StaffID   string
	DayOfWeek int
	Start     time.Time
	End       time.Time
	Label     string // 已 HTML 转义
	ChildIDs  []string
	IsClosure bool
}

// ExpandTemplate 将周模板按周展开到学期每一个匹配日期。
// 闭馆日每名员工只生成一条闭馆条目（固定时段、无儿童）。
// 相同输入得到相同且有序的输出。
func ExpandTemplate(ctx context.Context, entries []WeeklyTemplateEntry, semester *model.Semester, calendar ClosureChecker, policy ExpansionPolicy) ([]Occurrence, error) {
	start, end := policy.Window(semester)

	var out []Occurrence
	closureSeen := make(map[string]bool)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset := (e.DayOfWeek - int(start.Weekday()) + 7) % 7
		for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
			if closed, reason := calendar.IsClosed(ctx, d); closed {
				key := e.StaffID + "|" + d.Format("2006-01-02")
				if closureSeen[key] {
					continue
				}
				closureSeen[key] = true
				from, to := policy.ClosureWindow.On(d, policy.Location)
				out = append(out, Occurrence{
					StaffID:   e.StaffID,
					DayOfWeek: e.DayOfWeek,
					Start:     from,
					End:       to,
					Label:     ClosureLabel(reason),
					ChildIDs:  []string{},
					IsClosure: true,
				})
				continue
			}

			from, to := e.Slot.On(d, policy.Location)
			children := make([]string, len(e.ChildIDs))
			copy(children, e.ChildIDs)
			out = append(out, Occurrence{
				StaffID:   e.StaffID,
				DayOfWeek: e.DayOfWeek,
				Start:     from,
				End:       to,
				Label:     html.EscapeString(e.Activity),
				ChildIDs:  children,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.StaffID != b.StaffID {
			return a.StaffID < b.StaffID
		}
		return a.End.Before(b.End)
	})
	return out, nil
}

// civilDate 取 t 自身的年月日（DATE 列读出时为 UTC 零点），置为 loc 当地零点
func civilDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
