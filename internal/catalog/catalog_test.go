package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogHasThirteenDepartments(t *testing.T) {
	c := Default()

	if got := len(c.Departments()); got != 13 {
		t.Fatalf("departments = %d, want 13", got)
	}
	if got := len(c.Specialists()); got != 12 {
		t.Fatalf("specialists = %d, want 12", got)
	}
	if basic := c.Basic(); basic.ID != "basic" || basic.Name != "共通" || !basic.IsBasic() {
		t.Fatalf("unexpected basic department: %+v", basic)
	}

	years := c.Years()
	if len(years) != 12 || years[0] != 2008 || years[len(years)-1] != 2019 {
		t.Fatalf("unexpected years: %v", years)
	}
}

func TestLookupAcceptsIDNameAndAlias(t *testing.T) {
	c := Default()

	tests := []struct {
		key    string
		wantID string
	}{
		{key: "road", wantID: "road"},
		{key: " ROAD ", wantID: "road"},
		{key: "道路", wantID: "road"},
		{key: "河川・砂防", wantID: "civil_planning"},
		{key: "河川、砂防及び海岸・海洋", wantID: "civil_planning"},
		{key: "基礎科目", wantID: "basic"},
		{key: "上下水道", wantID: "water_supply"},
	}

	for _, tt := range tests {
		dept, ok := c.Lookup(tt.key)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.key)
		}
		if dept.ID != tt.wantID {
			t.Fatalf("Lookup(%q) = %s, want %s", tt.key, dept.ID, tt.wantID)
		}
	}

	if _, ok := c.Lookup("nuclear"); ok {
		t.Fatalf("expected unknown department lookup to fail")
	}
}

func TestNormalizeCategoryReturnsCanonicalLabel(t *testing.T) {
	c := Default()

	got, ok := c.NormalizeCategory("鋼構造・コンクリート")
	if !ok || got != "鋼構造及びコンクリート" {
		t.Fatalf("NormalizeCategory = (%q, %v)", got, ok)
	}
	if _, ok := c.NormalizeCategory("unknown"); ok {
		t.Fatalf("expected unknown category to fail")
	}
}

func TestValidYear(t *testing.T) {
	c := Default()

	for _, year := range []int{2008, 2015, 2019} {
		if !c.ValidYear(year) {
			t.Fatalf("year %d should be valid", year)
		}
	}
	for _, year := range []int{0, 2007, 2020, -1} {
		if c.ValidYear(year) {
			t.Fatalf("year %d should be invalid", year)
		}
	}
}

func TestParseRejectsConflictingAliases(t *testing.T) {
	data := `
years: {from: 2018, to: 2019}
departments:
  - {id: basic, name: 共通, type: basic}
  - {id: a, name: A, type: specialist, aliases: [x]}
  - {id: b, name: B, type: specialist, aliases: [x]}
`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "maps to both") {
		t.Fatalf("expected alias conflict error, got %v", err)
	}
}

func TestParseRequiresBasicDepartment(t *testing.T) {
	data := `
years: {from: 2018, to: 2019}
departments:
  - {id: a, name: A, type: specialist}
`
	if _, err := Parse([]byte(data)); err == nil {
		t.Fatalf("expected missing basic department error")
	}
}

func TestLoadFileOverridesEmbeddedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
years: {from: 2018, to: 2019}
departments:
  - {id: basic, name: 共通, type: basic}
  - {id: road, name: 道路, type: specialist}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(c.Departments()) != 2 || c.ValidYear(2008) {
		t.Fatalf("file catalog not applied: %+v %v", c.Departments(), c.Years())
	}
}
