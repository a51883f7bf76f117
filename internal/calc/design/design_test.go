package design

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calcerr"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	tbl, err := material.Default()
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(tbl, arrange.New(tbl, arrange.DefaultConfig()))
}

func simpleBeam() (AnalysisResult, Parameters) {
	return AnalysisResult{
			Moments: []float64{0, 112.5, 0},
			Shears:  []float64{75, -75},
			Spans:   []Span{{Length: 6.0}},
		}, Parameters{
			Element:       "beam",
			Support:       "simple",
			Width:         300,
			Depth:         500,
			ConcreteGrade: "C30",
			SteelGrade:    "460",
			Cover:         35,
		}
}

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestSimplySupportedBeam(t *testing.T) {
	e := newEngine(t)
	a, p := simpleBeam()

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if res.EffectiveDepth != 447 {
		t.Errorf("EffectiveDepth = %v, want 447", res.EffectiveDepth)
	}
	if len(res.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(res.Sections))
	}

	mid := res.Sections[1]
	if mid.Location != "span" || mid.Face != "bottom" {
		t.Errorf("mid-span section = %s/%s, want span/bottom", mid.Location, mid.Face)
	}
	if _, ok := mid.Flexure.(Singly); !ok {
		t.Errorf("mid-span flexure = %T, want Singly", mid.Flexure)
	}
	if !approx(mid.RequiredTension, 622.7, 1) {
		t.Errorf("mid-span As = %.1f, want ≈ 622.7", mid.RequiredTension)
	}
	if mid.Tension == nil || mid.Tension.Designation != "4T16" {
		t.Errorf("mid-span bars = %+v, want 4T16", mid.Tension)
	}
	if !approx(res.RequiredSteelArea, mid.RequiredTension, 1e-9) {
		t.Errorf("RequiredSteelArea = %v, want the mid-span area", res.RequiredSteelArea)
	}

	for _, i := range []int{0, 2} {
		s := res.Sections[i]
		if !s.MinimumGoverns || !approx(s.RequiredTension, 195, 1e-9) {
			t.Errorf("support %d: As = %v governs=%v, want minimum 195", i, s.RequiredTension, s.MinimumGoverns)
		}
	}

	if len(res.Shear) != 2 {
		t.Fatalf("got %d shear faces, want 2", len(res.Shear))
	}
	for _, sd := range res.Shear {
		if sd.Provision != ShearMinimum {
			t.Errorf("face %d provision = %s, want minimum", sd.Index, sd.Provision)
		}
		if sd.Stress >= sd.Capacity+0.4 {
			t.Errorf("face %d: v = %.3f not below vc + 0.4 = %.3f", sd.Index, sd.Stress, sd.Capacity+0.4)
		}
		if sd.Designation != "R8-175" {
			t.Errorf("face %d links = %q, want R8-175", sd.Index, sd.Designation)
		}
	}

	if res.Deflection == nil || !res.Deflection.Pass || !res.Flags.DeflectionOK {
		t.Errorf("deflection = %+v, want pass", res.Deflection)
	}
	if res.Flags.DoublyReinforced || res.Flags.MinimumReinforcementGoverns {
		t.Errorf("flags = %+v, want singly without minimum governing", res.Flags)
	}
}

func TestZeroMomentGivesMinimum(t *testing.T) {
	e := newEngine(t)
	a, p := simpleBeam()
	a.Moments = []float64{0}
	a.Shears = []float64{10, -10}

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(res.RequiredSteelArea, 195, 1e-9) || !res.Flags.MinimumReinforcementGoverns {
		t.Errorf("As = %v governs=%v, want minimum 195", res.RequiredSteelArea, res.Flags.MinimumReinforcementGoverns)
	}
	if res.Sections[0].Tension.ProvidedArea < res.RequiredSteelArea {
		t.Errorf("provided %v below minimum", res.Sections[0].Tension.ProvidedArea)
	}
}

func TestDoublyReinforcedBeam(t *testing.T) {
	e := newEngine(t)
	a, p := simpleBeam()
	a.Moments = []float64{0, 400, 0}
	a.Shears = []float64{100, -100}

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.DoublyReinforced {
		t.Fatal("DoublyReinforced flag not set")
	}
	mid := res.Sections[1]
	d, ok := mid.Flexure.(Doubly)
	if !ok {
		t.Fatalf("flexure = %T, want Doubly", mid.Flexure)
	}
	if d.UnclampedNeutralAxis <= d.NeutralAxisRatio {
		t.Errorf("unclamped x/d %.3f not above clamped %.3f", d.UnclampedNeutralAxis, d.NeutralAxisRatio)
	}
	if d.NeutralAxisRatio > 0.5 {
		t.Errorf("x/d = %.3f above 0.5", d.NeutralAxisRatio)
	}
	if !approx(mid.RequiredCompression, 693.5, 2) {
		t.Errorf("As' = %.1f, want ≈ 693.5", mid.RequiredCompression)
	}
	if !approx(mid.RequiredTension, 2542, 3) {
		t.Errorf("As = %.1f, want ≈ 2542", mid.RequiredTension)
	}
	if mid.Compression == nil || mid.Compression.ProvidedArea < mid.RequiredCompression {
		t.Errorf("compression bars = %+v", mid.Compression)
	}
	if mid.Tension.Designation != "9T20" || mid.Tension.Rows != 2 {
		t.Errorf("tension bars = %s in %d rows, want 9T20 in 2", mid.Tension.Designation, mid.Tension.Rows)
	}
}

func TestResultJSON(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name    string
		moment  float64
		wantMid string
	}{
		{"singly", 112.5, "design.Singly"},
		{"doubly", 400, "design.Doubly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, p := simpleBeam()
			a.Moments = []float64{0, tt.moment, 0}
			res, err := e.Calculate(a, p)
			if err != nil {
				t.Fatal(err)
			}
			b, err := json.Marshal(res)
			if err != nil {
				t.Fatal(err)
			}
			var got Result
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatal(err)
			}
			if typ := reflect.TypeOf(got.Sections[1].Flexure).String(); typ != tt.wantMid {
				t.Errorf("mid-span flexure = %s, want %s", typ, tt.wantMid)
			}
			if !reflect.DeepEqual(got.Sections, res.Sections) {
				t.Errorf("sections changed on decode:\n got %+v\nwant %+v", got.Sections, res.Sections)
			}
		})
	}

	var sd SectionDesign
	if err := json.Unmarshal([]byte(`{"index":0,"flexure":{"kind":"tripled"}}`), &sd); err == nil {
		t.Error("unknown flexure kind decoded without error")
	}
}

func TestContinuousRedistribution(t *testing.T) {
	a := AnalysisResult{
		Moments: []float64{0, 60, -90, 60, 0},
		Shears:  []float64{60, -80, 80, -60},
		Spans:   []Span{{Length: 5}, {Length: 5}},
	}
	_, p := simpleBeam()
	p.Support = "continuous"
	p.Redistribution = 20

	tests := []struct {
		name        string
		policy      RedistributionPolicy
		wantSupport float64
	}{
		{"larger of elastic and redistributed", GovernLarger, -90},
		{"redistributed only", UseRedistributed, -72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			e.Register(CodeBS8110, ElementBeam, BeamRules{Policy: tt.policy})
			res, err := e.Calculate(a, p)
			if err != nil {
				t.Fatal(err)
			}
			support := res.Sections[2]
			if support.RedistributedMoment != -72 {
				t.Errorf("redistributed support moment = %v, want -72", support.RedistributedMoment)
			}
			if support.DesignMoment != tt.wantSupport {
				t.Errorf("support design moment = %v, want %v", support.DesignMoment, tt.wantSupport)
			}
			if support.Face != "top" {
				t.Errorf("support face = %s, want top", support.Face)
			}
			if span := res.Sections[1]; span.DesignMoment != 69 {
				t.Errorf("span design moment = %v, want 69", span.DesignMoment)
			}
			if res.Deflection.BasicRatio != 26 {
				t.Errorf("basic ratio = %v, want 26", res.Deflection.BasicRatio)
			}
		})
	}
}

func TestContinuousSupportMomentsOnly(t *testing.T) {
	e := newEngine(t)
	a := AnalysisResult{
		Moments: []float64{0, -150, 0},
		Shears:  []float64{90, -110, 110, -90},
		Spans:   []Span{{Length: 6}, {Length: 6}},
	}
	_, p := simpleBeam()
	p.Support = "continuous"

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	d := res.Deflection
	if d == nil {
		t.Fatal("no deflection check")
	}
	if d.TensionModification >= 2 {
		t.Errorf("tension modification = %v, want the -150 kN·m section to govern below the cap", d.TensionModification)
	}
	if d.AllowableRatio >= 2*d.BasicRatio {
		t.Errorf("allowable ratio %v not reduced below %v", d.AllowableRatio, 2*d.BasicRatio)
	}
}

func TestInfeasibleDesigns(t *testing.T) {
	e := newEngine(t)
	slab := Parameters{Element: "slab", Depth: 150, ConcreteGrade: "C30", SteelGrade: "460"}
	slabAnalysis := func(m, v float64) AnalysisResult {
		return AnalysisResult{Moments: []float64{m}, Shears: []float64{v, -v}, Spans: []Span{{Length: 4}}}
	}

	tests := []struct {
		name     string
		analysis func() (AnalysisResult, Parameters)
		want     calcerr.Code
	}{
		{"beam above maximum steel", func() (AnalysisResult, Parameters) {
			a, p := simpleBeam()
			a.Moments = []float64{0, 900, 0}
			return a, p
		}, calcerr.CodeOverReinforced},
		{"slab cannot be doubly reinforced", func() (AnalysisResult, Parameters) {
			return slabAnalysis(100, 10), slab
		}, calcerr.CodeOverReinforced},
		{"beam shear above vmax", func() (AnalysisResult, Parameters) {
			a, p := simpleBeam()
			a.Shears = []float64{700, -700}
			return a, p
		}, calcerr.CodeShearCapacityExceeded},
		{"slab shear above vc", func() (AnalysisResult, Parameters) {
			return slabAnalysis(5, 100), slab
		}, calcerr.CodeShearCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, p := tt.analysis()
			res, err := e.Calculate(a, p)
			if !calcerr.Is(err, tt.want) {
				t.Fatalf("error = %v, want %s", err, tt.want)
			}
			if !reflect.DeepEqual(res, Result{}) {
				t.Error("partial result returned with error")
			}
		})
	}
}

func TestValidation(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name      string
		mutate    func(*AnalysisResult, *Parameters)
		wantCode  calcerr.Code
		wantField string
		wantMsg   string
	}{
		{"cover not less than depth", func(a *AnalysisResult, p *Parameters) {
			p.Depth, p.Cover = 100, 120
		}, calcerr.CodeInvalidInput, "cover", "cover must be less than depth"},
		{"width in metres", func(a *AnalysisResult, p *Parameters) {
			p.Width = 0.3
		}, calcerr.CodeInvalidInput, "width", ""},
		{"zero span", func(a *AnalysisResult, p *Parameters) {
			a.Spans[0].Length = 0
		}, calcerr.CodeInvalidInput, "spans[0].length", "spans[0].length must be > 0"},
		{"continuous moment count", func(a *AnalysisResult, p *Parameters) {
			p.Support = "continuous"
			a.Spans = []Span{{Length: 5}, {Length: 5}}
			a.Moments = []float64{-50, 80}
		}, calcerr.CodeInvalidInput, "moments", "moments array length must equal spans+1 for continuous beams (or 2·spans+1 with span moments)"},
		{"redistribution on simple span", func(a *AnalysisResult, p *Parameters) {
			p.Redistribution = 10
		}, calcerr.CodeInvalidInput, "redistribution", ""},
		{"unknown element", func(a *AnalysisResult, p *Parameters) {
			p.Element = "truss"
		}, calcerr.CodeInvalidInput, "element", ""},
		{"unknown concrete grade", func(a *AnalysisResult, p *Parameters) {
			p.ConcreteGrade = "C99"
		}, calcerr.CodeUnknownGrade, "concrete", ""},
		{"unknown code", func(a *AnalysisResult, p *Parameters) {
			p.Code = "EC2"
		}, calcerr.CodeUnknownGrade, "design code", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, p := simpleBeam()
			a.Spans = append([]Span(nil), a.Spans...)
			tt.mutate(&a, &p)
			_, err := e.Calculate(a, p)
			if !calcerr.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
			ce := err.(*calcerr.Error)
			if ce.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tt.wantField)
			}
			if tt.wantMsg != "" && ce.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", ce.Message, tt.wantMsg)
			}
		})
	}
}

func TestGradeNormalization(t *testing.T) {
	e := newEngine(t)
	a, p := simpleBeam()
	p.ConcreteGrade, p.Element, p.Support = " c30 ", "Beam", " SIMPLE"
	if _, err := e.Calculate(a, p); err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
}

func TestIdempotent(t *testing.T) {
	e := newEngine(t)
	a, p := simpleBeam()
	first, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical requests produced different results")
	}
}

func TestMinimumAndArrangementProperties(t *testing.T) {
	e := newEngine(t)
	cfg := e.Arranger().Config()
	a, p := simpleBeam()
	minimum := 0.0013 * p.Width * p.Depth

	for m := 0.0; m <= 300; m += 12.5 {
		a.Moments = []float64{0, m, 0}
		res, err := e.Calculate(a, p)
		if err != nil {
			t.Fatalf("M = %v: %v", m, err)
		}
		for _, s := range res.Sections {
			if s.RequiredTension < minimum-1e-9 {
				t.Errorf("M = %v section %d: As %v below minimum %v", m, s.Index, s.RequiredTension, minimum)
			}
			bars := s.Tension
			if float64(bars.Count)*bars.BarArea < s.RequiredTension {
				t.Errorf("M = %v section %d: %s below required", m, s.Index, bars.Designation)
			}
			if want := int(math.Ceil(float64(bars.Count) / float64(cfg.MaxBarsPerRow))); bars.Rows != want {
				t.Errorf("M = %v section %d: rows %d, want %d", m, s.Index, bars.Rows, want)
			}
		}
	}
}

func TestCantilever(t *testing.T) {
	e := newEngine(t)
	_, p := simpleBeam()
	p.Support = "cantilever"
	a := AnalysisResult{Moments: []float64{-80, 0}, Shears: []float64{60}, Spans: []Span{{Length: 2.5}}}

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sections[0].Location != "support" || res.Sections[0].Face != "top" {
		t.Errorf("root = %s/%s, want support/top", res.Sections[0].Location, res.Sections[0].Face)
	}
	if res.Sections[1].Location != "tip" {
		t.Errorf("second section = %s, want tip", res.Sections[1].Location)
	}
	if res.Deflection.BasicRatio != 7 {
		t.Errorf("basic ratio = %v, want 7", res.Deflection.BasicRatio)
	}
}

func TestSlabAndStair(t *testing.T) {
	e := newEngine(t)
	a := AnalysisResult{Moments: []float64{20}, Shears: []float64{30, -30}, Spans: []Span{{Length: 4}}}

	tests := []struct {
		element   string
		wantBasic float64
	}{
		{"slab", 20},
		{"stair", 23},
	}
	for _, tt := range tests {
		t.Run(tt.element, func(t *testing.T) {
			p := Parameters{Element: tt.element, Depth: 175, ConcreteGrade: "C30", SteelGrade: "460"}
			res, err := e.Calculate(a, p)
			if err != nil {
				t.Fatal(err)
			}
			if res.Width != 1000 {
				t.Errorf("width = %v, want the 1000 mm strip", res.Width)
			}
			s := res.Sections[0]
			if s.Mesh == nil || s.Tension != nil {
				t.Fatalf("section = %+v, want a mesh", s)
			}
			if s.Mesh.ProvidedArea < s.RequiredTension {
				t.Errorf("mesh %s provides %v < %v", s.Mesh.Designation, s.Mesh.ProvidedArea, s.RequiredTension)
			}
			if res.Shear[0].Provision != ShearNone {
				t.Errorf("provision = %s, want none", res.Shear[0].Provision)
			}
			if !approx(res.Deflection.BasicRatio, tt.wantBasic, 1e-9) {
				t.Errorf("basic ratio = %v, want %v", res.Deflection.BasicRatio, tt.wantBasic)
			}
		})
	}
}

func TestFoundation(t *testing.T) {
	e := newEngine(t)
	a := AnalysisResult{Moments: []float64{250}, Shears: []float64{300}}
	p := Parameters{Element: "foundation", Width: 2000, Depth: 500, ConcreteGrade: "C30", SteelGrade: "460"}

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deflection != nil {
		t.Error("foundation should not carry a deflection check")
	}
	s := res.Sections[0]
	if !approx(s.RequiredTension, 1368.6, 1) || s.MinimumGoverns {
		t.Errorf("As = %.1f governs=%v, want ≈ 1368.6 above minimum", s.RequiredTension, s.MinimumGoverns)
	}
	if s.Mesh == nil || s.ProvidedTension < s.RequiredTension {
		t.Errorf("mesh = %+v provides %v", s.Mesh, s.ProvidedTension)
	}
	if res.Shear[0].Provision != ShearNone {
		t.Errorf("provision = %s, want none", res.Shear[0].Provision)
	}
}

func TestColumn(t *testing.T) {
	e := newEngine(t)
	p := Parameters{Element: "column", Width: 300, Depth: 300, ConcreteGrade: "C30", SteelGrade: "460", Cover: 30}

	tests := []struct {
		name         string
		moment, load float64
		wantMode     string
		wantMinimum  bool
		wantDesign   string
	}{
		{"axially loaded", 0, 1000, "axial", true, "4T12, links R8-125"},
		{"combined with moment", 20, 1200, "combined", false, "8T12, links R8-125"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalysisResult{Moments: []float64{tt.moment}, AxialLoads: []float64{tt.load}, Spans: []Span{{Length: 3}}}
			res, err := e.Calculate(a, p)
			if err != nil {
				t.Fatal(err)
			}
			col := res.Column
			if col == nil {
				t.Fatal("no column design")
			}
			if col.Sections[0].Mode != tt.wantMode {
				t.Errorf("mode = %s, want %s", col.Sections[0].Mode, tt.wantMode)
			}
			if res.Flags.MinimumReinforcementGoverns != tt.wantMinimum {
				t.Errorf("minimum governs = %v, want %v", res.Flags.MinimumReinforcementGoverns, tt.wantMinimum)
			}
			if col.Designation != tt.wantDesign {
				t.Errorf("designation = %q, want %q", col.Designation, tt.wantDesign)
			}
			if col.Provided < col.Required || col.Required < 0.004*90000 {
				t.Errorf("provided %v, required %v", col.Provided, col.Required)
			}
			if !approx(col.Slenderness, 8.5, 1e-9) {
				t.Errorf("slenderness = %v, want 8.5", col.Slenderness)
			}
		})
	}

	a := AnalysisResult{Moments: []float64{0}, AxialLoads: []float64{500}, Spans: []Span{{Length: 6}}}
	if _, err := e.Calculate(a, p); !calcerr.Is(err, calcerr.CodeInvalidInput) {
		t.Errorf("slender column error = %v, want INVALID_INPUT", err)
	}
}

func TestColumnShear(t *testing.T) {
	e := newEngine(t)
	p := Parameters{Element: "column", Width: 300, Depth: 300, ConcreteGrade: "C30", SteelGrade: "460", Cover: 30}

	tests := []struct {
		name         string
		moment, load float64
		shear        float64
		wantErr      bool
	}{
		{"small eccentricity", 20, 1200, 50, false},
		{"above vmax", 0, 1000, 5000, true},
		{"above enhanced vc", 60, 300, 250, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalysisResult{
				Moments:    []float64{tt.moment},
				Shears:     []float64{tt.shear},
				AxialLoads: []float64{tt.load},
				Spans:      []Span{{Length: 3}},
			}
			res, err := e.Calculate(a, p)
			if tt.wantErr {
				if !calcerr.Is(err, calcerr.CodeShearCapacityExceeded) {
					t.Fatalf("error = %v, want SHEAR_CAPACITY_EXCEEDED", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Shear) != 1 {
				t.Fatalf("shear checks = %d, want 1", len(res.Shear))
			}
			sd := res.Shear[0]
			if sd.Provision != ShearNone || sd.Stress > sd.MaxStress {
				t.Errorf("shear = %+v", sd)
			}
		})
	}
}

func TestWall(t *testing.T) {
	e := newEngine(t)
	a := AnalysisResult{Moments: []float64{10}, AxialLoads: []float64{800}, Spans: []Span{{Length: 3}}}
	p := Parameters{Element: "wall", Depth: 200, ConcreteGrade: "C30", SteelGrade: "460"}

	res, err := e.Calculate(a, p)
	if err != nil {
		t.Fatal(err)
	}
	col := res.Column
	if col.Mesh == nil || col.Bars != nil {
		t.Fatalf("wall design = %+v, want a mesh per face", col)
	}
	if col.Designation != "T10-175 EF" {
		t.Errorf("designation = %q, want T10-175 EF", col.Designation)
	}
	if !res.Flags.MinimumReinforcementGoverns || col.Provided < col.Required {
		t.Errorf("required %v provided %v governs=%v", col.Required, col.Provided, res.Flags.MinimumReinforcementGoverns)
	}
}
