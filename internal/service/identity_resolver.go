package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"projet-5iw/backend/internal/model"
)

// ── 姓名解析 ─────────────────────────────────────────────────
//
// 将周模板中手写的姓名映射到员工 / 儿童 ID。
// 每名员工按固定顺序的键生成策略注册多个查找键；
// 同一个键被两名不同员工占用时视为歧义，不再解析到任何人。
// ─────────────────────────────────────────────────────────────

// staffTitles 可出现在员工姓名前的称谓（已归一化）
var staffTitles = []string{"dr", "docteur", "mr", "m", "monsieur", "mme", "madame", "mlle", "pr"}

// nameKeyStrategy 根据归一化后的名、姓生成一个或多个查找键
type nameKeyStrategy func(first, last string) []string

// staffKeyStrategies 员工查找键策略，按顺序执行
var staffKeyStrategies = []nameKeyStrategy{
	func(first, last string) []string { return []string{joinKey(first, last)} },
	func(first, last string) []string { return []string{joinKey(last, first)} },
	func(_, last string) []string { return []string{last} },
	func(first, _ string) []string { return []string{first} },
	func(first, last string) []string {
		keys := make([]string, 0, len(staffTitles)*3)
		for _, title := range staffTitles {
			keys = append(keys,
				joinKey(title, last),
				joinKey(title, first, last),
				joinKey(title, last, first),
			)
		}
		return keys
	},
}

// childKeyStrategies 儿童姓名视为不重复，只使用"名 姓"
var childKeyStrategies = []nameKeyStrategy{
	func(first, last string) []string { return []string{joinKey(first, last)} },
}

// IdentityResolver 一次导入内使用的姓名索引
type IdentityResolver struct {
	staff    map[string]string
	children map[string]string
}

// NewIdentityResolver 根据当前名册建立索引
func NewIdentityResolver(staff []model.Staff, children []model.Child) *IdentityResolver {
	r := &IdentityResolver{
		staff:    make(map[string]string),
		children: make(map[string]string),
	}
	for _, s := range staff {
		register(r.staff, s.StaffID, s.FirstName, s.LastName, staffKeyStrategies)
	}
	for _, c := range children {
		register(r.children, c.ChildID, c.FirstName, c.LastName, childKeyStrategies)
	}
	return r
}

// ResolveStaff 解析员工姓名，未命中或歧义时返回 ("", false)
func (r *IdentityResolver) ResolveStaff(raw string) (string, bool) {
	return lookup(r.staff, raw)
}

// ResolveChild 解析儿童姓名，未命中时返回 ("", false)
func (r *IdentityResolver) ResolveChild(raw string) (string, bool) {
	return lookup(r.children, raw)
}

// ambiguous 歧义键的占位值
const ambiguous = "\x00"

func register(index map[string]string, id, first, last string, strategies []nameKeyStrategy) {
	f, l := NormalizeName(first), NormalizeName(last)
	// 同一人多个策略生成相同键时不算歧义
	seen := make(map[string]bool)
	for _, strategy := range strategies {
		for _, key := range strategy(f, l) {
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if existing, ok := index[key]; ok && existing != id {
				index[key] = ambiguous
				continue
			}
			index[key] = id
		}
	}
}

func lookup(index map[string]string, raw string) (string, bool) {
	key := NormalizeName(raw)
	if key == "" {
		return "", false
	}
	id, ok := index[key]
	if !ok || id == ambiguous {
		return "", false
	}
	return id, true
}

func joinKey(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// NormalizeName 小写、去重音、统一引号与连字符、去掉句点、压缩空白
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r == '.':
			continue
		case r == '’' || r == '‘' || r == '`' || r == '´':
			b.WriteRune('\'')
		case r == '‐' || r == '‑' || r == '‒' || r == '–' || r == '—' || r == '−':
			b.WriteRune('-')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
