package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"projet-5iw/backend/internal/model"
)

// 校验问题类型
const (
	IssueMissingSheet    = "missing_sheet"
	IssueUnresolvedStaff = "unresolved_staff"
	IssueUnresolvedChild = "unresolved_child"
	IssueStaffConflict   = "staff_conflict"
	IssueMissingStaff    = "missing_staff"
	IssueMissingCoverage = "missing_coverage"
	IssueTooManySlots    = "too_many_slots"
)

const (
	pauseActivity = "Pause"
	allChildren   = "tous"
)

// ValidationIssue 单个校验问题
type ValidationIssue struct {
	Kind          string   `json:"kind"`
	Day           int      `json:"day,omitempty"`
	DayName       string   `json:"day_name,omitempty"`
	Line          int      `json:"line,omitempty"`
	TimeslotIndex *int     `json:"timeslot_index,omitempty"`
	Timeslot      string   `json:"timeslot,omitempty"`
	Name          string   `json:"name,omitempty"`
	Activities    []string `json:"activities,omitempty"`
	Message       string   `json:"message"`
}

// ValidationReport 导入校验报告，收集全部问题后一次性返回
type ValidationReport struct {
	Issues []ValidationIssue `json:"issues"`
}

func (r *ValidationReport) Error() string {
	return fmt.Sprintf("周模板校验失败: %d 个问题", len(r.Issues))
}

// HasIssues 报告是否非空
func (r *ValidationReport) HasIssues() bool {
	return r != nil && len(r.Issues) > 0
}

func (r *ValidationReport) add(issue ValidationIssue) {
	if issue.Day != 0 {
		issue.DayName = DayName(issue.Day)
	}
	r.Issues = append(r.Issues, issue)
}

// parsedCell 单元格 "<活动>" 或 "<活动> – <姓名>, <姓名>"
type parsedCell struct {
	Activity string
	Names    []string
}

func (c parsedCell) isPause() bool {
	return strings.EqualFold(c.Activity, pauseActivity)
}

// parseCell 以第一个 en dash（兼容 em dash）分隔活动与儿童名单
func parseCell(raw string) parsedCell {
	activity, rest := raw, ""
	if i := strings.IndexAny(raw, "–—"); i >= 0 {
		activity = raw[:i]
		_, size := utf8.DecodeRuneInString(raw[i:])
		rest = raw[i+size:]
	}
	cell := parsedCell{Activity: strings.TrimSpace(activity)}
	for _, name := range strings.Split(rest, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cell.Names = append(cell.Names, name)
		}
	}
	return cell
}

type slotKey struct {
	staffID string
	day     int
	slot    int
}

type daySlot struct {
	day  int
	slot int
}

// templateValidation 一次校验的中间状态
type templateValidation struct {
	resolver *IdentityResolver
	children []model.Child
	slots    Timeslots
	report   *ValidationReport

	entries   map[slotKey]*WeeklyTemplateEntry
	childSets map[slotKey]map[string]bool
	seenStaff map[string]bool
	covered   map[daySlot]map[string]bool
	// filled 记录出现过非空单元格的 (工作日, 时段)，busy 记录其中出现过非纯 Pause 的
	filled map[daySlot]bool
	busy   map[daySlot]bool
}

// ValidateTemplate 校验周模板并解析为条目；存在任何问题时返回完整报告而非条目
func ValidateTemplate(grid *TemplateGrid, resolver *IdentityResolver, staffRoster []model.Staff, childRoster []model.Child, slots Timeslots) ([]WeeklyTemplateEntry, *ValidationReport) {
	v := &templateValidation{
		resolver:  resolver,
		children:  childRoster,
		slots:     slots,
		report:    &ValidationReport{},
		entries:   make(map[slotKey]*WeeklyTemplateEntry),
		childSets: make(map[slotKey]map[string]bool),
		seenStaff: make(map[string]bool),
		covered:   make(map[daySlot]map[string]bool),
		filled:    make(map[daySlot]bool),
		busy:      make(map[daySlot]bool),
	}

	for day := Monday; day <= Friday; day++ {
		rows, ok := grid.Days[day]
		if !ok {
			v.report.add(ValidationIssue{
				Kind:    IssueMissingSheet,
				Day:     day,
				Message: fmt.Sprintf("缺少工作表 %s", DayName(day)),
			})
			continue
		}
		for _, row := range rows {
			v.scanRow(day, row)
		}
	}

	v.checkMissingStaff(staffRoster)
	v.checkCoverage(grid)

	if v.report.HasIssues() {
		return nil, v.report
	}
	return v.result(), nil
}

func (v *templateValidation) scanRow(day int, row TemplateRow) {
	staffID, resolved := v.resolver.ResolveStaff(row.Name)
	if resolved {
		v.seenStaff[staffID] = true
	} else {
		// 员工未识别时仍继续解析本行的儿童，避免连带产生覆盖缺失
		v.report.add(ValidationIssue{
			Kind:    IssueUnresolvedStaff,
			Day:     day,
			Line:    row.Line,
			Name:    row.Name,
			Message: fmt.Sprintf("%s 第 %d 行：无法识别员工 %q", DayName(day), row.Line, row.Name),
		})
	}

	daySlots := v.slots.ForDay(day)
	if len(row.Cells) > len(daySlots) && !isBlank(row.Cells[len(daySlots):]) {
		v.report.add(ValidationIssue{
			Kind:    IssueTooManySlots,
			Day:     day,
			Line:    row.Line,
			Name:    row.Name,
			Message: fmt.Sprintf("%s 第 %d 行：时段列数超过 %d", DayName(day), row.Line, len(daySlots)),
		})
	}

	for i, slot := range daySlots {
		if i >= len(row.Cells) || row.Cells[i] == "" {
			continue
		}
		cell := parseCell(row.Cells[i])
		childIDs := v.resolveChildren(day, i, slot, row, cell)

		ds := daySlot{day: day, slot: i}
		v.filled[ds] = true
		if !cell.isPause() || len(cell.Names) > 0 {
			v.busy[ds] = true
		}
		for _, id := range childIDs {
			if v.covered[ds] == nil {
				v.covered[ds] = make(map[string]bool)
			}
			v.covered[ds][id] = true
		}

		if !resolved {
			continue
		}
		if cell.isPause() {
			// Pause 中列出的儿童只计入覆盖，不挂到条目上
			childIDs = nil
			cell.Activity = pauseActivity
		}
		v.record(slotKey{staffID: staffID, day: day, slot: i}, slot, row, cell.Activity, childIDs)
	}
}

func (v *templateValidation) resolveChildren(day, idx int, slot Timeslot, row TemplateRow, cell parsedCell) []string {
	var ids []string
	for _, name := range cell.Names {
		if NormalizeName(name) == allChildren {
			for _, c := range v.children {
				ids = append(ids, c.ChildID)
			}
			continue
		}
		id, ok := v.resolver.ResolveChild(name)
		if !ok {
			v.report.add(ValidationIssue{
				Kind:          IssueUnresolvedChild,
				Day:           day,
				Line:          row.Line,
				TimeslotIndex: intPtr(idx),
				Timeslot:      slot.String(),
				Name:          name,
				Message:       fmt.Sprintf("%s 第 %d 行 %s：无法识别儿童 %q", DayName(day), row.Line, slot, name),
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// record 写入条目；同一 (员工, 工作日, 时段) 再次出现时同活动合并儿童，不同活动报冲突
func (v *templateValidation) record(key slotKey, slot Timeslot, row TemplateRow, activity string, childIDs []string) {
	existing, ok := v.entries[key]
	if ok {
		if NormalizeName(existing.Activity) != NormalizeName(activity) {
			v.report.add(ValidationIssue{
				Kind:          IssueStaffConflict,
				Day:           key.day,
				Line:          row.Line,
				TimeslotIndex: intPtr(key.slot),
				Timeslot:      slot.String(),
				Name:          row.Name,
				Activities:    []string{existing.Activity, activity},
				Message: fmt.Sprintf("%s %s：员工 %q 同时安排了 %q 和 %q",
					DayName(key.day), slot, row.Name, existing.Activity, activity),
			})
			return
		}
	} else {
		v.entries[key] = &WeeklyTemplateEntry{
			StaffID:       key.staffID,
			DayOfWeek:     key.day,
			TimeslotIndex: key.slot,
			Slot:          slot,
			Activity:      activity,
		}
		v.childSets[key] = make(map[string]bool)
	}
	for _, id := range childIDs {
		v.childSets[key][id] = true
	}
}

func (v *templateValidation) checkMissingStaff(roster []model.Staff) {
	for _, s := range roster {
		if !s.IsScheduled || v.seenStaff[s.StaffID] {
			continue
		}
		name := strings.TrimSpace(s.FirstName + " " + s.LastName)
		v.report.add(ValidationIssue{
			Kind:    IssueMissingStaff,
			Name:    name,
			Message: fmt.Sprintf("员工 %s 未出现在任何工作表中", name),
		})
	}
}

// checkCoverage 每名儿童在每个工作日每个时段都必须有安排；
// 整列均为纯 Pause 的时段视为全体休息，缺失工作表已单独报告
func (v *templateValidation) checkCoverage(grid *TemplateGrid) {
	for day := Monday; day <= Friday; day++ {
		if _, ok := grid.Days[day]; !ok {
			continue
		}
		for _, child := range v.children {
			for i, slot := range v.slots.ForDay(day) {
				ds := daySlot{day: day, slot: i}
				globalBreak := v.filled[ds] && !v.busy[ds]
				if globalBreak || v.covered[ds][child.ChildID] {
					continue
				}
				name := strings.TrimSpace(child.FirstName + " " + child.LastName)
				v.report.add(ValidationIssue{
					Kind:          IssueMissingCoverage,
					Day:           day,
					TimeslotIndex: intPtr(i),
					Timeslot:      slot.String(),
					Name:          name,
					Message:       fmt.Sprintf("%s %s：儿童 %s 没有安排", DayName(day), slot, name),
				})
			}
		}
	}
}

// result 按 (工作日, 时段, 员工) 排序输出，儿童 ID 去重排序
func (v *templateValidation) result() []WeeklyTemplateEntry {
	out := make([]WeeklyTemplateEntry, 0, len(v.entries))
	for key, e := range v.entries {
		ids := make([]string, 0, len(v.childSets[key]))
		for id := range v.childSets[key] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		e.ChildIDs = ids
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.TimeslotIndex != b.TimeslotIndex {
			return a.TimeslotIndex < b.TimeslotIndex
		}
		return a.StaffID < b.StaffID
	})
	return out
}

func intPtr(i int) *int { return &i }
