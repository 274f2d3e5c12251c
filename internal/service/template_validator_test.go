package service

import (
	"testing"
)

// validGrid 每个工作日每个时段：Marie 带 Léa，Paul 带 Hugo
func validGrid(slots Timeslots) *TemplateGrid {
	grid := &TemplateGrid{Days: make(map[int][]TemplateRow)}
	for day := Monday; day <= Friday; day++ {
		n := len(slots.ForDay(day))
		marie := make([]string, n)
		paul := make([]string, n)
		for i := 0; i < n; i++ {
			marie[i] = "Peinture – Léa Petit"
			paul[i] = "Sport – Hugo Bernard"
		}
		grid.Days[day] = []TemplateRow{
			{Line: 2, Name: "Marie Dupont", Cells: marie},
			{Line: 3, Name: "Paul Martin", Cells: paul},
		}
	}
	return grid
}

func validate(grid *TemplateGrid) ([]WeeklyTemplateEntry, *ValidationReport) {
	staff, children := testStaff(), testChildren()
	return ValidateTemplate(grid, NewIdentityResolver(staff, children), staff, children, testSettings().Slots)
}

func issuesOf(report *ValidationReport, kind string) []ValidationIssue {
	if report == nil {
		return nil
	}
	var out []ValidationIssue
	for _, issue := range report.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

func findEntry(entries []WeeklyTemplateEntry, staffID string, day, slot int) *WeeklyTemplateEntry {
	for i := range entries {
		e := &entries[i]
		if e.StaffID == staffID && e.DayOfWeek == day && e.TimeslotIndex == slot {
			return e
		}
	}
	return nil
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw      string
		activity string
		names    int
	}{
		{"Peinture", "Peinture", 0},
		{"Peinture – Léa Petit, Hugo Bernard", "Peinture", 2},
		{"Jeux — tous", "Jeux", 1},
		{"Pause", "Pause", 0},
		{"Atelier – ", "Atelier", 0},
	}
	for _, tt := range tests {
		cell := parseCell(tt.raw)
		if cell.Activity != tt.activity || len(cell.Names) != tt.names {
			t.Errorf("parseCell(%q) = %+v，期望活动 %q、%d 个姓名", tt.raw, cell, tt.activity, tt.names)
		}
	}
}

func TestValidateTemplate_Valid(t *testing.T) {
	entries, report := validate(validGrid(testSettings().Slots))
	if report.HasIssues() {
		t.Fatalf("合法模板不应有问题: %+v", report.Issues)
	}
	// 4 天 × 5 时段 + 周三 3 时段，两名员工
	if len(entries) != 2*(4*5+3) {
		t.Errorf("期望 46 个条目，实际 %d", len(entries))
	}

	seen := make(map[slotKey]bool)
	for _, e := range entries {
		k := slotKey{staffID: e.StaffID, day: e.DayOfWeek, slot: e.TimeslotIndex}
		if seen[k] {
			t.Errorf("(员工, 工作日, 时段) 重复: %+v", k)
		}
		seen[k] = true
	}

	e := findEntry(entries, staffMarie, Wednesday, 2)
	if e == nil || e.Slot.String() != "10:45-12:00" {
		t.Fatalf("周三第 3 时段应为 10:45-12:00，实际 %+v", e)
	}
	if len(e.ChildIDs) != 1 || e.ChildIDs[0] != childLea {
		t.Errorf("条目儿童错误: %v", e.ChildIDs)
	}
}

func TestValidateTemplate_AllChildrenToken(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	for day := Monday; day <= Friday; day++ {
		rows := grid.Days[day]
		for i := range rows[0].Cells {
			rows[0].Cells[i] = "Accueil – TOUS"
			rows[1].Cells[i] = "Réunion"
		}
	}

	entries, report := validate(grid)
	if report.HasIssues() {
		t.Fatalf("tous 应覆盖全部儿童: %+v", report.Issues)
	}
	if e := findEntry(entries, staffMarie, Monday, 0); e == nil || len(e.ChildIDs) != 2 {
		t.Errorf("tous 应展开为全部儿童，实际 %+v", e)
	}
	if e := findEntry(entries, staffPaul, Monday, 0); e == nil || len(e.ChildIDs) != 0 {
		t.Errorf("无名单的活动不应带儿童，实际 %+v", e)
	}
}

func TestValidateTemplate_GlobalBreak(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	rows := grid.Days[Monday]
	rows[0].Cells[2] = "pause"
	rows[1].Cells[2] = "Pause"

	entries, report := validate(grid)
	if report.HasIssues() {
		t.Fatalf("全体 Pause 的时段应免除覆盖检查: %+v", report.Issues)
	}
	e := findEntry(entries, staffMarie, Monday, 2)
	if e == nil || e.Activity != "Pause" || len(e.ChildIDs) != 0 {
		t.Errorf("Pause 条目错误: %+v", e)
	}
}

func TestValidateTemplate_PauseWithChildren(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	grid.Days[Tuesday][0].Cells[4] = "Pause – Léa Petit"

	entries, report := validate(grid)
	if report.HasIssues() {
		t.Fatalf("Pause 中列出的儿童应计入覆盖: %+v", report.Issues)
	}
	e := findEntry(entries, staffMarie, Tuesday, 4)
	if e == nil || e.Activity != "Pause" || len(e.ChildIDs) != 0 {
		t.Errorf("Pause 条目不应挂儿童: %+v", e)
	}
}

func TestValidateTemplate_MissingCoverage(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	grid.Days[Tuesday][1].Cells[1] = ""

	entries, report := validate(grid)
	if entries != nil {
		t.Error("存在问题时不应返回条目")
	}
	issues := issuesOf(report, IssueMissingCoverage)
	if len(issues) != 1 {
		t.Fatalf("期望 1 个覆盖缺失，实际 %+v", report.Issues)
	}
	got := issues[0]
	if got.Name != "Hugo Bernard" || got.Day != Tuesday || got.TimeslotIndex == nil || *got.TimeslotIndex != 1 {
		t.Errorf("覆盖缺失定位错误: %+v", got)
	}
	if got.DayName != "Mardi" || got.Timeslot != "09:30-10:30" {
		t.Errorf("覆盖缺失描述错误: %+v", got)
	}
}

func TestValidateTemplate_StaffConflictAndMerge(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	grid.Days[Monday] = append(grid.Days[Monday],
		TemplateRow{Line: 4, Name: "Mme Dupont", Cells: []string{"Musique – Léa Petit"}},
	)
	_, report := validate(grid)
	conflicts := issuesOf(report, IssueStaffConflict)
	if len(conflicts) != 1 {
		t.Fatalf("期望 1 个员工冲突，实际 %+v", report)
	}
	acts := conflicts[0].Activities
	if len(acts) != 2 || acts[0] != "Peinture" || acts[1] != "Musique" {
		t.Errorf("冲突应列出两个活动，实际 %v", acts)
	}

	grid = validGrid(testSettings().Slots)
	grid.Days[Monday] = append(grid.Days[Monday],
		TemplateRow{Line: 4, Name: "Dupont", Cells: []string{"peinture – Hugo Bernard"}},
	)
	entries, report := validate(grid)
	if report.HasIssues() {
		t.Fatalf("同一活动重复出现应合并: %+v", report.Issues)
	}
	e := findEntry(entries, staffMarie, Monday, 0)
	if e == nil || len(e.ChildIDs) != 2 || e.ChildIDs[0] != childHugo || e.ChildIDs[1] != childLea {
		t.Errorf("合并后儿童应有序去重，实际 %+v", e)
	}
}

func TestValidateTemplate_UnresolvedNames(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	grid.Days[Monday][1].Name = "Inconnu"
	grid.Days[Thursday][0].Cells[0] = "Peinture – Léa Petit, Zoé Inconnue"

	_, report := validate(grid)
	if got := issuesOf(report, IssueUnresolvedStaff); len(got) != 1 || got[0].Line != 3 || got[0].Name != "Inconnu" {
		t.Errorf("员工未识别报告错误: %+v", got)
	}
	child := issuesOf(report, IssueUnresolvedChild)
	if len(child) != 1 || child[0].Name != "Zoé Inconnue" || child[0].Day != Thursday {
		t.Errorf("儿童未识别报告错误: %+v", child)
	}
	// 员工未识别的行仍解析儿童，不应连带产生覆盖缺失
	if got := issuesOf(report, IssueMissingCoverage); len(got) != 0 {
		t.Errorf("不应有覆盖缺失: %+v", got)
	}
	if got := issuesOf(report, IssueMissingStaff); len(got) != 0 {
		t.Errorf("Paul 在其他工作日出现，不应报缺失: %+v", got)
	}
}

func TestValidateTemplate_MissingStaffAndSheet(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	delete(grid.Days, Friday)
	for day := range grid.Days {
		grid.Days[day][1].Name = "Marie"
	}

	_, report := validate(grid)
	if got := issuesOf(report, IssueMissingSheet); len(got) != 1 || got[0].DayName != "Vendredi" {
		t.Errorf("缺失工作表报告错误: %+v", got)
	}
	if got := issuesOf(report, IssueMissingStaff); len(got) != 1 || got[0].Name != "Paul Martin" {
		t.Errorf("缺失员工报告错误: %+v", got)
	}
	// 缺失的工作日不再逐个时段报告覆盖
	for _, issue := range issuesOf(report, IssueMissingCoverage) {
		if issue.Day == Friday {
			t.Errorf("缺失工作表的工作日不应报告覆盖缺失: %+v", issue)
		}
	}
}

func TestValidateTemplate_TooManySlots(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	row := &grid.Days[Wednesday][0]
	row.Cells = append(row.Cells, "Sortie – Léa Petit")

	_, report := validate(grid)
	got := issuesOf(report, IssueTooManySlots)
	if len(got) != 1 || got[0].Day != Wednesday || got[0].Line != 2 {
		t.Errorf("时段列数超限报告错误: %+v", report)
	}
}

func TestValidateTemplate_ReportsEverything(t *testing.T) {
	grid := validGrid(testSettings().Slots)
	grid.Days[Monday][0].Name = "Personne"
	grid.Days[Tuesday][1].Cells[0] = "Sport – Enfant Fantôme"
	grid.Days[Thursday][0].Cells[3] = ""

	_, report := validate(grid)
	kinds := map[string]bool{}
	for _, issue := range report.Issues {
		kinds[issue.Kind] = true
	}
	for _, want := range []string{IssueUnresolvedStaff, IssueUnresolvedChild, IssueMissingCoverage} {
		if !kinds[want] {
			t.Errorf("报告应一次性包含 %s，实际 %+v", want, report.Issues)
		}
	}
}

