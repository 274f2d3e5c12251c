package service

import (
	"fmt"
	"time"

	"projet-5iw/backend/config"
)

// 周模板的工作日（ISO：1=周一 .. 5=周五）
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
)

// weekdaySheets 工作表名（归一化后）→ 工作日
var weekdaySheets = map[string]int{
	"lundi":    Monday,
	"mardi":    Tuesday,
	"mercredi": Wednesday,
	"jeudi":    Thursday,
	"vendredi": Friday,
}

// DayName 工作日对应的工作表名
func DayName(day int) string {
	switch day {
	case Monday:
		return "Lundi"
	case Tuesday:
		return "Mardi"
	case Wednesday:
		return "Mercredi"
	case Thursday:
		return "Jeudi"
	case Friday:
		return "Vendredi"
	}
	return ""
}

// Timeslot 一天内的时段，以距零点的分钟数表示
type Timeslot struct {
	StartMin int
	EndMin   int
}

// On 将时段落到具体日期上
func (t Timeslot) On(day time.Time, loc *time.Location) (time.Time, time.Time) {
	at := func(min int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), min/60, min%60, 0, 0, loc)
	}
	return at(t.StartMin), at(t.EndMin)
}

func (t Timeslot) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", t.StartMin/60, t.StartMin%60, t.EndMin/60, t.EndMin%60)
}

// Timeslots 周模板时段表：周三 3 个时段，其余工作日 5 个
type Timeslots struct {
	Standard  []Timeslot
	Wednesday []Timeslot
}

// ForDay 返回某工作日的时段列表
func (t Timeslots) ForDay(day int) []Timeslot {
	if day == Wednesday {
		return t.Wednesday
	}
	return t.Standard
}

// ParseTimeslots 解析配置中的时段表
func ParseTimeslots(cfg config.TimeslotConfig) (Timeslots, error) {
	standard, err := parseRanges(cfg.Standard)
	if err != nil {
		return Timeslots{}, fmt.Errorf("planning.timeslots.standard: %w", err)
	}
	wednesday, err := parseRanges(cfg.Wednesday)
	if err != nil {
		return Timeslots{}, fmt.Errorf("planning.timeslots.wednesday: %w", err)
	}
	return Timeslots{Standard: standard, Wednesday: wednesday}, nil
}

func parseRanges(ranges []config.TimeRangeConfig) ([]Timeslot, error) {
	slots := make([]Timeslot, 0, len(ranges))
	for _, r := range ranges {
		slot, err := ParseTimeRange(r)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// ParseTimeRange 解析 HH:MM-HH:MM
func ParseTimeRange(r config.TimeRangeConfig) (Timeslot, error) {
	start, err := time.Parse("15:04", r.Start)
	if err != nil {
		return Timeslot{}, fmt.Errorf("开始时间 %q 无效", r.Start)
	}
	end, err := time.Parse("15:04", r.End)
	if err != nil {
		return Timeslot{}, fmt.Errorf("结束时间 %q 无效", r.End)
	}
	slot := Timeslot{
		StartMin: start.Hour()*60 + start.Minute(),
		EndMin:   end.Hour()*60 + end.Minute(),
	}
	if slot.EndMin <= slot.StartMin {
		return Timeslot{}, fmt.Errorf("时段 %s-%s 结束时间必须晚于开始时间", r.Start, r.End)
	}
	return slot, nil
}

// WeeklyTemplateEntry 校验后的周模板条目：每个 (员工, 工作日, 时段) 唯一
type WeeklyTemplateEntry struct {
	StaffID       string
	DayOfWeek     int
	TimeslotIndex int
	Slot          Timeslot
	Activity      string
	ChildIDs      []string
}

// TemplateRow 工作表中的一行（员工一行）
type TemplateRow struct {
	Line  int // 工作表中的行号（1-based，含表头）
	Name  string
	Cells []string
}

// TemplateGrid 从工作簿解析出的逻辑网格，按工作日索引
type TemplateGrid struct {
	Days map[int][]TemplateRow
}
