package service

import (
	"testing"

	"projet-5iw/backend/internal/model"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Léa   PETIT ", "lea petit"},
		{"Mme. Dupont", "mme dupont"},
		{"Jean–Pierre", "jean-pierre"},
		{"D’Artagnan", "d'artagnan"},
		{"Zoë\tÇelik", "zoe celik"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q，期望 %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentityResolver_StaffStrategies(t *testing.T) {
	r := NewIdentityResolver(testStaff(), testChildren())

	for _, raw := range []string{
		"Marie Dupont",
		"dupont marie",
		"DUPONT",
		"Marie",
		"Mme Dupont",
		"Madame Marie Dupont",
		"Mme. Dupont Marie",
	} {
		id, ok := r.ResolveStaff(raw)
		if !ok || id != staffMarie {
			t.Errorf("ResolveStaff(%q) = (%q, %v)，期望 %s", raw, id, ok, staffMarie)
		}
	}
	if _, ok := r.ResolveStaff("Jacques Durand"); ok {
		t.Error("未知员工不应解析成功")
	}
	if _, ok := r.ResolveStaff("   "); ok {
		t.Error("空白姓名不应解析成功")
	}
}

func TestIdentityResolver_AmbiguousKey(t *testing.T) {
	staff := append(testStaff(), model.Staff{StaffID: "staff-luc", FirstName: "Luc", LastName: "Dupont", IsScheduled: true})
	r := NewIdentityResolver(staff, nil)

	if _, ok := r.ResolveStaff("Dupont"); ok {
		t.Error("两名员工同姓时仅凭姓应视为歧义")
	}
	if id, ok := r.ResolveStaff("Luc Dupont"); !ok || id != "staff-luc" {
		t.Errorf("全名应仍可解析，实际 (%q, %v)", id, ok)
	}
	if id, ok := r.ResolveStaff("Marie"); !ok || id != staffMarie {
		t.Errorf("名唯一时应可解析，实际 (%q, %v)", id, ok)
	}
}

func TestIdentityResolver_ChildrenFullNameOnly(t *testing.T) {
	r := NewIdentityResolver(testStaff(), testChildren())

	if id, ok := r.ResolveChild("lea petit"); !ok || id != childLea {
		t.Errorf("ResolveChild 去重音后应命中，实际 (%q, %v)", id, ok)
	}
	if _, ok := r.ResolveChild("Petit Léa"); ok {
		t.Error("儿童只接受\"名 姓\"顺序")
	}
	if _, ok := r.ResolveChild("Léa"); ok {
		t.Error("儿童不接受只写名")
	}
}
