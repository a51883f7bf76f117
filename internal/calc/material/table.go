// Package material holds the design-code and takeoff reference data.
//
// A Table is built once from a TOML document (the embedded BS 8110 table or a
// file named by configuration) and is read-only afterwards, so one *Table can
// be shared by any number of concurrent calculations. Tests construct their
// own tables with Parse.
package material

import (
	_ "embed"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"

	"Civcalc/internal/calcerr"
)

//go:embed bs8110.toml
var defaultTable []byte

// Code holds the constants of one design code.
type Code struct {
	GammaMShear              float64 `toml:"gamma_m_shear"`
	SteelFactor              float64 `toml:"steel_factor"`
	LeverArmDivisor          float64 `toml:"lever_arm_divisor"`
	NeutralAxisFactor        float64 `toml:"neutral_axis_factor"`
	MaxLeverArmRatio         float64 `toml:"max_lever_arm_ratio"`
	MaxNeutralAxisRatio      float64 `toml:"max_neutral_axis_ratio"`
	KPrime                   float64 `toml:"k_prime"`
	RedistributionThreshold  float64 `toml:"redistribution_threshold"`
	MaxRedistribution        float64 `toml:"max_redistribution"`
	VmaxFactor               float64 `toml:"vmax_factor"`
	VmaxCap                  float64 `toml:"vmax_cap"`
	VcFcuCap                 float64 `toml:"vc_fcu_cap"`
	VcRatioCap               float64 `toml:"vc_ratio_cap"`
	MinLinkStress            float64 `toml:"min_link_stress"`
	LinkSpacingRatio         float64 `toml:"link_spacing_ratio"`
	SpanDepthCantilever      float64 `toml:"span_depth_cantilever"`
	SpanDepthSimple          float64 `toml:"span_depth_simple"`
	SpanDepthContinuous      float64 `toml:"span_depth_continuous"`
	StairSpanDepthFactor     float64 `toml:"stair_span_depth_factor"`
	ModificationFactorCap    float64 `toml:"modification_factor_cap"`
	ColumnConcreteFactor     float64 `toml:"column_concrete_factor"`
	ColumnSteelFactor        float64 `toml:"column_steel_factor"`
	ColumnMomentConcrete     float64 `toml:"column_moment_concrete_factor"`
	ColumnMomentSteel        float64 `toml:"column_moment_steel_factor"`
	NominalEccentricityRatio float64 `toml:"nominal_eccentricity_ratio"`
}

// Steel is a reinforcement grade.
type Steel struct {
	Fy     float64 `toml:"fy"`
	Prefix string  `toml:"prefix"` // bar-mark prefix, e.g. "T" in 3T16
}

// Limit holds the reinforcement limits of one element category.
type Limit struct {
	MinRatio     map[string]float64 `toml:"min_ratio"` // keyed by steel grade
	MaxRatio     float64            `toml:"max_ratio"`
	NominalCover float64            `toml:"nominal_cover"`
}

// Material is a takeoff material.
type Material struct {
	Name       string  `toml:"-"`
	Kind       string  `toml:"kind"`
	Label      string  `toml:"label"`
	Mix        string  `toml:"mix"`
	UnitWeight float64 `toml:"unit_weight"` // kN/m³
}

// Bar is one standard bar diameter and its nominal area.
type Bar struct {
	Diameter float64 // mm
	Area     float64 // mm²
}

type document struct {
	Codes     map[string]Code     `toml:"codes"`
	Concrete  map[string]float64  `toml:"concrete"`
	Steel     map[string]Steel    `toml:"steel"`
	Limits    map[string]Limit    `toml:"limits"`
	Bars      map[string]float64  `toml:"bars"`
	Materials map[string]Material `toml:"materials"`
	Rates     map[string]float64  `toml:"reinforcement_rates"`
}

// Table is the read-only reference table.
type Table struct {
	doc  document
	bars []Bar
}

// Default parses the embedded BS 8110 table.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load parses a table from a TOML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, calcerr.Wrap(calcerr.CodeInternal, err, "read material table %s", path)
	}
	return Parse(data)
}

// Parse builds a Table from a TOML document. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, calcerr.Wrap(calcerr.CodeInternal, err, "decode material table")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, calcerr.New(calcerr.CodeInternal, "material table: unknown key %q", undecoded[0].String())
	}

	t := &Table{doc: doc}
	for key, area := range doc.Bars {
		d, err := strconv.ParseFloat(key, 64)
		if err != nil || d <= 0 || area <= 0 {
			return nil, calcerr.New(calcerr.CodeInternal, "material table: invalid bar %q", key)
		}
		t.bars = append(t.bars, Bar{Diameter: d, Area: area})
	}
	slices.SortFunc(t.bars, func(a, b Bar) int {
		switch {
		case a.Diameter < b.Diameter:
			return -1
		case a.Diameter > b.Diameter:
			return 1
		}
		return 0
	})
	if len(t.bars) == 0 {
		return nil, calcerr.New(calcerr.CodeInternal, "material table: no bar sizes")
	}
	if len(doc.Codes) == 0 {
		return nil, calcerr.New(calcerr.CodeInternal, "material table: no design codes")
	}
	for name, m := range t.doc.Materials {
		m.Name = name
		t.doc.Materials[name] = m
	}
	return t, nil
}

// Code returns the constants of a design code.
func (t *Table) Code(id string) (Code, error) {
	c, ok := t.doc.Codes[id]
	if !ok {
		return Code{}, calcerr.UnknownGrade("design code", id)
	}
	return c, nil
}

// Concrete returns the characteristic cube strength fcu of a concrete grade.
func (t *Table) Concrete(grade string) (float64, error) {
	fcu, ok := t.doc.Concrete[grade]
	if !ok {
		return 0, calcerr.UnknownGrade("concrete", grade)
	}
	return fcu, nil
}

// Steel returns a reinforcement grade.
func (t *Table) Steel(grade string) (Steel, error) {
	s, ok := t.doc.Steel[grade]
	if !ok {
		return Steel{}, calcerr.UnknownGrade("steel", grade)
	}
	return s, nil
}

// MinimumRatio returns the minimum reinforcement ratio (As/bh) for an
// element category reinforced with the given steel grade.
func (t *Table) MinimumRatio(category, steelGrade string) (float64, error) {
	l, ok := t.doc.Limits[category]
	if !ok {
		return 0, calcerr.UnknownGrade("element category", category)
	}
	r, ok := l.MinRatio[steelGrade]
	if !ok {
		return 0, calcerr.UnknownGrade(category, steelGrade)
	}
	return r, nil
}

// MaximumRatio returns the maximum reinforcement ratio for an element category.
func (t *Table) MaximumRatio(category string) (float64, error) {
	l, ok := t.doc.Limits[category]
	if !ok {
		return 0, calcerr.UnknownGrade("element category", category)
	}
	return l.MaxRatio, nil
}

// NominalCover returns the default cover for an element category.
func (t *Table) NominalCover(category string) (float64, error) {
	l, ok := t.doc.Limits[category]
	if !ok {
		return 0, calcerr.UnknownGrade("element category", category)
	}
	return l.NominalCover, nil
}

// Bars returns the standard bar sizes in ascending diameter order.
// The slice is a copy.
func (t *Table) Bars() []Bar {
	return slices.Clone(t.bars)
}

// BarArea returns the nominal area of a standard bar diameter.
func (t *Table) BarArea(diameter float64) (float64, error) {
	for _, b := range t.bars {
		if b.Diameter == diameter {
			return b.Area, nil
		}
	}
	return 0, calcerr.UnknownGrade("bar diameter", strconv.FormatFloat(diameter, 'f', -1, 64))
}

// Material returns a takeoff material by name.
func (t *Table) Material(name string) (Material, error) {
	m, ok := t.doc.Materials[name]
	if !ok {
		return Material{}, calcerr.UnknownMaterial("material", name)
	}
	return m, nil
}

// MaterialOfKind returns a material, failing unless it is of the given kind.
func (t *Table) MaterialOfKind(field, name, kind string) (Material, error) {
	m, ok := t.doc.Materials[name]
	if !ok || m.Kind != kind {
		return Material{}, calcerr.UnknownMaterial(field, name)
	}
	return m, nil
}

// ConcreteGrades lists the tabulated concrete grades in name order.
func (t *Table) ConcreteGrades() []string {
	return slices.Sorted(maps.Keys(t.doc.Concrete))
}

// SteelGrades lists the tabulated steel grades in name order.
func (t *Table) SteelGrades() []string {
	return slices.Sorted(maps.Keys(t.doc.Steel))
}

// Materials lists the takeoff materials in name order.
func (t *Table) Materials() []Material {
	out := make([]Material, 0, len(t.doc.Materials))
	for _, name := range slices.Sorted(maps.Keys(t.doc.Materials)) {
		out = append(out, t.doc.Materials[name])
	}
	return out
}

// ReinforcementRate returns the takeoff reinforcement rate (kg/m³) of an element.
func (t *Table) ReinforcementRate(element string) (float64, error) {
	r, ok := t.doc.Rates[element]
	if !ok {
		return 0, calcerr.UnknownMaterial("reinforcement rate", element)
	}
	return r, nil
}

// ShearCapacity returns the design concrete shear stress vc (N/mm²) of a
// section with tension steel as (mm²), width b and effective depth d (mm).
func (c Code) ShearCapacity(fcu, as, b, d float64) float64 {
	ratio := math.Min(100*as/(b*d), c.VcRatioCap)
	depth := math.Max(math.Pow(400/d, 0.25), 1)
	grade := math.Cbrt(math.Min(fcu, c.VcFcuCap) / 25)
	return 0.79 * math.Cbrt(ratio) * depth / c.GammaMShear * grade
}

// MaxShear returns the shear stress ceiling min(0.8√fcu, 5) N/mm².
func (c Code) MaxShear(fcu float64) float64 {
	return math.Min(c.VmaxFactor*math.Sqrt(fcu), c.VmaxCap)
}

// KPrimeFor returns the limiting K for the given percentage of moment redistribution.
func (c Code) KPrimeFor(redistribution float64) float64 {
	if redistribution <= c.RedistributionThreshold {
		return c.KPrime
	}
	bb := 1 - redistribution/100
	return 0.402*(bb-0.4) - 0.18*(bb-0.4)*(bb-0.4)
}

func (m Material) String() string {
	if m.Mix != "" {
		return fmt.Sprintf("%s (%s)", m.Label, m.Mix)
	}
	return m.Label
}
