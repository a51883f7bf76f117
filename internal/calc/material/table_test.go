package material

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"Civcalc/internal/calcerr"
)

func mustDefault(t *testing.T) *Table {
	t.Helper()
	tbl, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	return tbl
}

func TestDefaultLookups(t *testing.T) {
	tbl := mustDefault(t)

	fcu, err := tbl.Concrete("C30")
	if err != nil || fcu != 30 {
		t.Errorf("Concrete(C30) = %v, %v", fcu, err)
	}
	s, err := tbl.Steel("460")
	if err != nil || s.Fy != 460 || s.Prefix != "T" {
		t.Errorf("Steel(460) = %+v, %v", s, err)
	}
	r, err := tbl.MinimumRatio("beam", "460")
	if err != nil || r != 0.0013 {
		t.Errorf("MinimumRatio(beam, 460) = %v, %v", r, err)
	}
	r, err = tbl.MinimumRatio("beam", "250")
	if err != nil || r != 0.0024 {
		t.Errorf("MinimumRatio(beam, 250) = %v, %v", r, err)
	}
	mx, err := tbl.MaximumRatio("column")
	if err != nil || mx != 0.06 {
		t.Errorf("MaximumRatio(column) = %v, %v", mx, err)
	}
	a, err := tbl.BarArea(16)
	if err != nil || a != 201 {
		t.Errorf("BarArea(16) = %v, %v", a, err)
	}
	rate, err := tbl.ReinforcementRate("column")
	if err != nil || rate != 180 {
		t.Errorf("ReinforcementRate(column) = %v, %v", rate, err)
	}
	m, err := tbl.MaterialOfKind("pipe_material", "upvc", "pipe")
	if err != nil || m.Label != "uPVC" || m.Name != "upvc" {
		t.Errorf("MaterialOfKind(upvc) = %+v, %v", m, err)
	}
}

func TestBarsSortedAndCopied(t *testing.T) {
	tbl := mustDefault(t)
	bars := tbl.Bars()
	for i := 1; i < len(bars); i++ {
		if bars[i].Diameter <= bars[i-1].Diameter {
			t.Fatalf("bars not ascending at %d: %v", i, bars)
		}
	}
	bars[0].Area = -1
	if tbl.Bars()[0].Area == -1 {
		t.Error("Bars() exposed internal slice")
	}
}

func TestUnknownLookups(t *testing.T) {
	tbl := mustDefault(t)
	tests := []struct {
		name string
		err  error
		code calcerr.Code
	}{
		{"concrete", second(tbl.Concrete("C99")), calcerr.CodeUnknownGrade},
		{"steel", second(tbl.Steel("600")), calcerr.CodeUnknownGrade},
		{"category", second(tbl.MinimumRatio("bridge", "460")), calcerr.CodeUnknownGrade},
		{"category steel", second(tbl.MinimumRatio("beam", "600")), calcerr.CodeUnknownGrade},
		{"code", second(tbl.Code("ACI318")), calcerr.CodeUnknownGrade},
		{"bar", second(tbl.BarArea(18)), calcerr.CodeUnknownGrade},
		{"material", second(tbl.Material("adobe")), calcerr.CodeUnknownMaterial},
		{"wrong kind", second(tbl.MaterialOfKind("pipe_material", "brick", "pipe")), calcerr.CodeUnknownMaterial},
		{"rate", second(tbl.ReinforcementRate("bridge")), calcerr.CodeUnknownMaterial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !calcerr.Is(tt.err, tt.code) {
				t.Errorf("err = %v, want %s", tt.err, tt.code)
			}
		})
	}
}

func TestShearCapacity(t *testing.T) {
	tbl := mustDefault(t)
	c, err := tbl.Code("BS8110")
	if err != nil {
		t.Fatal(err)
	}

	// BS 8110 Table 3.8: 100As/bd = 0.5, d = 400, fcu = 25 → vc ≈ 0.50 N/mm².
	vc := c.ShearCapacity(25, 0.005*300*400, 300, 400)
	if math.Abs(vc-0.50) > 0.01 {
		t.Errorf("vc = %.3f, want ≈ 0.50", vc)
	}

	// fcu is capped at 40.
	if c.ShearCapacity(50, 600, 300, 400) != c.ShearCapacity(40, 600, 300, 400) {
		t.Error("fcu cap not applied")
	}

	if got := c.MaxShear(30); math.Abs(got-0.8*math.Sqrt(30)) > 1e-12 {
		t.Errorf("MaxShear(30) = %v", got)
	}
	if got := c.MaxShear(50); got != 5 {
		t.Errorf("MaxShear(50) = %v, want 5", got)
	}
}

func TestKPrimeFor(t *testing.T) {
	tbl := mustDefault(t)
	c, _ := tbl.Code("BS8110")
	if got := c.KPrimeFor(0); got != 0.156 {
		t.Errorf("KPrimeFor(0) = %v", got)
	}
	if got := c.KPrimeFor(10); got != 0.156 {
		t.Errorf("KPrimeFor(10) = %v", got)
	}
	// βb = 0.8 → 0.402·0.4 − 0.18·0.16 = 0.132
	if got := c.KPrimeFor(20); math.Abs(got-0.132) > 1e-9 {
		t.Errorf("KPrimeFor(20) = %v, want 0.132", got)
	}
}

func TestLoadOverride(t *testing.T) {
	doc := `
[codes.BS8110]
k_prime = 0.156
[concrete]
C60 = 60.0
[bars]
"12" = 113.0
`
	path := filepath.Join(t.TempDir(), "table.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if fcu, err := tbl.Concrete("C60"); err != nil || fcu != 60 {
		t.Errorf("Concrete(C60) = %v, %v", fcu, err)
	}
	if _, err := tbl.Concrete("C30"); err == nil {
		t.Error("override table should not contain C30")
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "[codes"},
		{"unknown key", "[codes.BS8110]\nk_prime = 0.156\n[bars]\n\"12\" = 113.0\n[extras]\nx = 1\n"},
		{"no bars", "[codes.BS8110]\nk_prime = 0.156\n"},
		{"bad bar", "[codes.BS8110]\nk_prime = 0.156\n[bars]\nabc = 1.0\n"},
		{"no codes", "[bars]\n\"12\" = 113.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("Parse() succeeded, want error")
			}
		})
	}
}

func second[T any](_ T, err error) error { return err }

func TestListings(t *testing.T) {
	tbl := mustDefault(t)
	if got := tbl.ConcreteGrades(); len(got) != 7 || got[0] != "C20" || got[6] != "C50" {
		t.Errorf("ConcreteGrades() = %v", got)
	}
	if got := tbl.SteelGrades(); len(got) != 3 || got[0] != "250" || got[2] != "500" {
		t.Errorf("SteelGrades() = %v", got)
	}
	ms := tbl.Materials()
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Name >= ms[i].Name {
			t.Fatalf("materials out of order at %d: %q, %q", i, ms[i-1].Name, ms[i].Name)
		}
	}
	if len(ms) == 0 || ms[0].Label == "" {
		t.Errorf("Materials() = %+v", ms)
	}
}
