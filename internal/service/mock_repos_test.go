package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"projet-5iw/backend/config"
	"projet-5iw/backend/internal/model"
	"projet-5iw/backend/internal/repository"
)

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Label
	}
	m.semesters[semester.SemesterID] = semester
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

// ── Mock StaffRepository ──

type mockStaffRepo struct {
	staff []model.Staff
}

func (m *mockStaffRepo) GetByID(_ context.Context, id string) (*model.Staff, error) {
	for i := range m.staff {
		if m.staff[i].StaffID == id {
			return &m.staff[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStaffRepo) ListScheduled(_ context.Context) ([]model.Staff, error) {
	var result []model.Staff
	for _, s := range m.staff {
		if s.IsScheduled {
			result = append(result, s)
		}
	}
	return result, nil
}

// ── Mock ChildRepository ──

type mockChildRepo struct {
	children []model.Child
}

func (m *mockChildRepo) GetByID(_ context.Context, id string) (*model.Child, error) {
	for i := range m.children {
		if m.children[i].ChildID == id {
			return &m.children[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChildRepo) ListAll(_ context.Context) ([]model.Child, error) {
	return append([]model.Child(nil), m.children...), nil
}

func (m *mockChildRepo) ListByIDs(_ context.Context, ids []string) ([]model.Child, error) {
	want := toSet(ids)
	var result []model.Child
	for _, c := range m.children {
		if want[c.ChildID] {
			result = append(result, c)
		}
	}
	return result, nil
}

// ── Mock EventRegistrationRepository ──

type mockRegistrationRepo struct {
	regs []model.EventRegistration
}

func (m *mockRegistrationRepo) ListConfirmedByChild(_ context.Context, childID string, from, to time.Time) ([]model.EventRegistration, error) {
	var result []model.EventRegistration
	for _, r := range m.regs {
		if r.ChildID != childID || r.Event == nil {
			continue
		}
		if r.Status != model.RegistrationPaid && r.Status != model.RegistrationFree {
			continue
		}
		d := civilDate(r.Event.EventDate, from.Location())
		if d.Before(from) || d.After(to) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// ── Mock ScheduleEntryRepository ──

type mockScheduleEntryRepo struct {
	entries map[string]*model.ScheduleEntry
	links   *mockEntryChildRepo
}

func (m *mockScheduleEntryRepo) BatchCreate(_ context.Context, entries []model.ScheduleEntry) error {
	for i := range entries {
		e := entries[i]
		m.entries[e.EntryID] = &e
	}
	return nil
}

func (m *mockScheduleEntryRepo) GetByID(_ context.Context, id string) (*model.ScheduleEntry, error) {
	if e, ok := m.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleEntryRepo) list(match func(*model.ScheduleEntry) bool) []model.ScheduleEntry {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if match(e) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartAt.Equal(result[j].StartAt) {
			return result[i].StartAt.Before(result[j].StartAt)
		}
		return result[i].StaffID < result[j].StaffID
	})
	return result
}

func (m *mockScheduleEntryRepo) ListBySemester(_ context.Context, semesterID string) ([]model.ScheduleEntry, error) {
	return m.list(func(e *model.ScheduleEntry) bool { return e.SemesterID == semesterID }), nil
}

func (m *mockScheduleEntryRepo) ListBySemesterAndStaff(_ context.Context, semesterID, staffID string) ([]model.ScheduleEntry, error) {
	return m.list(func(e *model.ScheduleEntry) bool {
		return e.SemesterID == semesterID && e.StaffID == staffID
	}), nil
}

func (m *mockScheduleEntryRepo) ListBySemesterAndChild(_ context.Context, semesterID, childID string) ([]model.ScheduleEntry, error) {
	return m.list(func(e *model.ScheduleEntry) bool {
		_, linked := m.links.links[linkKey{e.EntryID, childID}]
		return e.SemesterID == semesterID && linked
	}), nil
}

func (m *mockScheduleEntryRepo) UpdateState(_ context.Context, id string, state model.EntryState) error {
	e, ok := m.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.State = state
	return nil
}

func (m *mockScheduleEntryRepo) DeleteBySemester(_ context.Context, semesterID string) error {
	for id, e := range m.entries {
		if e.SemesterID != semesterID {
			continue
		}
		for k := range m.links.links {
			if k.entryID == id {
				delete(m.links.links, k)
			}
		}
		delete(m.entries, id)
	}
	return nil
}

// ── Mock EntryChildRepository ──

type linkKey struct {
	entryID string
	childID string
}

type mockEntryChildRepo struct {
	links map[linkKey]*model.ScheduleEntryChild
}

func (m *mockEntryChildRepo) BatchCreate(ctx context.Context, links []model.ScheduleEntryChild) error {
	for i := range links {
		if err := m.Create(ctx, &links[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockEntryChildRepo) Create(_ context.Context, link *model.ScheduleEntryChild) error {
	cp := *link
	m.links[linkKey{link.EntryID, link.ChildID}] = &cp
	return nil
}

func (m *mockEntryChildRepo) Get(_ context.Context, entryID, childID string) (*model.ScheduleEntryChild, error) {
	if l, ok := m.links[linkKey{entryID, childID}]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryChildRepo) filter(match func(*model.ScheduleEntryChild) bool) []model.ScheduleEntryChild {
	var result []model.ScheduleEntryChild
	for _, l := range m.links {
		if match(l) {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryID != result[j].EntryID {
			return result[i].EntryID < result[j].EntryID
		}
		return result[i].ChildID < result[j].ChildID
	})
	return result
}

func (m *mockEntryChildRepo) ListByEntry(_ context.Context, entryID string) ([]model.ScheduleEntryChild, error) {
	return m.filter(func(l *model.ScheduleEntryChild) bool { return l.EntryID == entryID }), nil
}

func (m *mockEntryChildRepo) ListByEntries(_ context.Context, entryIDs []string) ([]model.ScheduleEntryChild, error) {
	want := toSet(entryIDs)
	return m.filter(func(l *model.ScheduleEntryChild) bool { return want[l.EntryID] }), nil
}

func (m *mockEntryChildRepo) ListByOriginal(_ context.Context, originalEntryID string) ([]model.ScheduleEntryChild, error) {
	return m.filter(func(l *model.ScheduleEntryChild) bool {
		return l.OriginalEntryID != nil && *l.OriginalEntryID == originalEntryID
	}), nil
}

func (m *mockEntryChildRepo) Delete(_ context.Context, entryID, childID string) error {
	delete(m.links, linkKey{entryID, childID})
	return nil
}

// ── Mock SourceFileRepository ──

type mockSourceFileRepo struct {
	files map[string]*model.ScheduleSourceFile
}

func (m *mockSourceFileRepo) Upsert(_ context.Context, file *model.ScheduleSourceFile) error {
	cp := *file
	m.files[file.SemesterID] = &cp
	return nil
}

func (m *mockSourceFileRepo) GetBySemester(_ context.Context, semesterID string) (*model.ScheduleSourceFile, error) {
	if f, ok := m.files[semesterID]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ═══════════════════════════════════════════════════════════
// 测试夹具
// ═══════════════════════════════════════════════════════════

type mockRepos struct {
	semesters *mockSemesterRepo
	staff     *mockStaffRepo
	children  *mockChildRepo
	regs      *mockRegistrationRepo
	entries   *mockScheduleEntryRepo
	links     *mockEntryChildRepo
	files     *mockSourceFileRepo
}

// newMockRepository 基于 mock 的 Repository 聚合（无 db，事务直接内联执行）
func newMockRepository() (*repository.Repository, *mockRepos) {
	links := &mockEntryChildRepo{links: make(map[linkKey]*model.ScheduleEntryChild)}
	m := &mockRepos{
		semesters: newMockSemesterRepo(),
		staff:     &mockStaffRepo{staff: testStaff()},
		children:  &mockChildRepo{children: testChildren()},
		regs:      &mockRegistrationRepo{},
		entries:   &mockScheduleEntryRepo{entries: make(map[string]*model.ScheduleEntry), links: links},
		links:     links,
		files:     &mockSourceFileRepo{files: make(map[string]*model.ScheduleSourceFile)},
	}
	repo := &repository.Repository{
		Semester:      m.semesters,
		Staff:         m.staff,
		Child:         m.children,
		Registration:  m.regs,
		ScheduleEntry: m.entries,
		EntryChild:    m.links,
		SourceFile:    m.files,
	}
	return repo, m
}

const (
	staffMarie = "staff-marie"
	staffPaul  = "staff-paul"
	childLea   = "child-lea"
	childHugo  = "child-hugo"
	guardianA  = "user-guardian-a"
	guardianB  = "user-guardian-b"
	userPaul   = "user-paul"
)

func testStaff() []model.Staff {
	paulUser := userPaul
	return []model.Staff{
		{StaffID: staffMarie, FirstName: "Marie", LastName: "Dupont", IsScheduled: true},
		{StaffID: staffPaul, FirstName: "Paul", LastName: "Martin", UserID: &paulUser, IsScheduled: true},
	}
}

func testChildren() []model.Child {
	return []model.Child{
		{ChildID: childLea, FirstName: "Léa", LastName: "Petit", GuardianUserID: guardianA},
		{ChildID: childHugo, FirstName: "Hugo", LastName: "Bernard", GuardianUserID: guardianB},
	}
}

var paris = mustLoadLocation("Europe/Paris")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func testPlanningConfig() *config.PlanningConfig {
	return &config.PlanningConfig{
		Timezone:         "Europe/Paris",
		SupportedYears:   []int{2024, 2025, 2026},
		SecondHalfMonths: []int{2, 3, 4, 5, 6},
		SchoolYearEnd:    "06-30",
		ClosureWindow:    config.TimeRangeConfig{Start: "08:00", End: "16:00"},
		Timeslots: config.TimeslotConfig{
			Standard: []config.TimeRangeConfig{
				{Start: "08:30", End: "09:30"},
				{Start: "09:30", End: "10:30"},
				{Start: "10:45", End: "12:00"},
				{Start: "13:30", End: "14:45"},
				{Start: "14:45", End: "16:00"},
			},
			Wednesday: []config.TimeRangeConfig{
				{Start: "08:30", End: "09:30"},
				{Start: "09:30", End: "10:45"},
				{Start: "10:45", End: "12:00"},
			},
		},
		CancelMarker:  "[Annulé] ",
		ImportTimeout: time.Minute,
	}
}

func testSettings() *PlanningSettings {
	s, err := NewPlanningSettings(testPlanningConfig())
	if err != nil {
		panic(err)
	}
	return s
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
