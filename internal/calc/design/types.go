package design

import (
	"encoding/json"
	"fmt"

	"Civcalc/internal/calc/arrange"
)

type Element string

const (
	ElementBeam       Element = "beam"
	ElementColumn     Element = "column"
	ElementFoundation Element = "foundation"
	ElementSlab       Element = "slab"
	ElementWall       Element = "wall"
	ElementStair      Element = "stair"
)

type Support string

const (
	SupportSimple     Support = "simple"
	SupportContinuous Support = "continuous"
	SupportCantilever Support = "cantilever"
)

const CodeBS8110 = "BS8110"

// Span is one span of the analysed member. Length is in metres.
type Span struct {
	Length  float64 `json:"length_m"`
	Support string  `json:"support,omitempty"`
}

// AnalysisResult is the already-computed analysis output the design consumes.
// Moments are in kNm (sagging positive), shears and axial loads in kN.
type AnalysisResult struct {
	Moments    []float64 `json:"moments_knm"`
	Shears     []float64 `json:"shears_kn"`
	Spans      []Span    `json:"spans"`
	AxialLoads []float64 `json:"axial_loads_kn,omitempty"`
}

// Parameters describe the section and materials. Dimensions are in mm.
// Zero optional fields take the defaults noted below.
type Parameters struct {
	Code    string `json:"code,omitempty"`
	Element string `json:"element"`
	Support string `json:"support,omitempty"`
	// Width defaults to a 1000 mm strip for slabs, stairs and walls.
	Width         float64 `json:"width_mm"`
	Depth         float64 `json:"depth_mm"`
	ConcreteGrade string  `json:"concrete_grade"`
	SteelGrade    string  `json:"steel_grade"`
	LinkGrade     string  `json:"link_grade,omitempty"`
	// LinkDiameter defaults to 8 mm; slabs, stairs and bases carry no links.
	LinkDiameter float64 `json:"link_diameter_mm,omitempty"`
	// MainBarDiameter is the bar assumed when computing the effective depth,
	// 20 mm by default and 12 mm in slabs, stairs and walls.
	MainBarDiameter float64 `json:"main_bar_diameter_mm,omitempty"`
	// Cover defaults to the nominal cover of the element category.
	Cover          float64 `json:"cover_mm,omitempty"`
	Redistribution float64 `json:"redistribution_pct,omitempty"`
	// EffectiveLength is the column effective length factor, 0.85 by default.
	EffectiveLength float64 `json:"effective_length_factor,omitempty"`
}

// Flexure is the bending outcome of one section: Singly or Doubly.
type Flexure interface {
	flexure()
	Tension() float64
	Compression() float64
}

// Singly is a section whose neutral axis stays within the code limit.
type Singly struct {
	Kind             string  `json:"kind"`
	K                float64 `json:"k"`
	LeverArm         float64 `json:"lever_arm_mm"`
	NeutralAxisRatio float64 `json:"neutral_axis_ratio"`
	TensionArea      float64 `json:"tension_mm2"`
}

// Doubly is a section whose unclamped neutral axis exceeds the code limit;
// compression steel carries the excess.
type Doubly struct {
	Kind                 string  `json:"kind"`
	K                    float64 `json:"k"`
	KPrime               float64 `json:"k_prime"`
	LeverArm             float64 `json:"lever_arm_mm"`
	NeutralAxisRatio     float64 `json:"neutral_axis_ratio"`
	UnclampedNeutralAxis float64 `json:"unclamped_neutral_axis_ratio"`
	CompressionStress    float64 `json:"compression_stress_mpa"`
	CompressionYields    bool    `json:"compression_yields"`
	TensionArea          float64 `json:"tension_mm2"`
	CompressionArea      float64 `json:"compression_mm2"`
}

func (Singly) flexure()               {}
func (s Singly) Tension() float64     { return s.TensionArea }
func (Singly) Compression() float64   { return 0 }
func (Doubly) flexure()               {}
func (d Doubly) Tension() float64     { return d.TensionArea }
func (d Doubly) Compression() float64 { return d.CompressionArea }

// SectionDesign is the bending design of one critical section.
type SectionDesign struct {
	Index               int                  `json:"index"`
	Location            string               `json:"location"` // support, span, tip or face
	Face                string               `json:"tension_face"`
	ElasticMoment       float64              `json:"elastic_moment_knm"`
	RedistributedMoment float64              `json:"redistributed_moment_knm"`
	DesignMoment        float64              `json:"design_moment_knm"`
	Flexure             Flexure              `json:"flexure"`
	MinimumTension      float64              `json:"minimum_tension_mm2"`
	MaximumTension      float64              `json:"maximum_tension_mm2"`
	RequiredTension     float64              `json:"required_tension_mm2"`
	RequiredCompression float64              `json:"required_compression_mm2"`
	MinimumGoverns      bool                 `json:"minimum_reinforcement_governs"`
	Tension             *arrange.Arrangement `json:"tension_bars,omitempty"`
	Compression         *arrange.Arrangement `json:"compression_bars,omitempty"`
	Mesh                *arrange.Mesh        `json:"mesh,omitempty"`
	ProvidedTension     float64              `json:"provided_tension_mm2"`
}

// UnmarshalJSON picks the Flexure variant from its kind.
func (s *SectionDesign) UnmarshalJSON(b []byte) error {
	type plain SectionDesign
	aux := struct {
		*plain
		Flexure json.RawMessage `json:"flexure"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Flexure = nil
	if len(aux.Flexure) == 0 || string(aux.Flexure) == "null" {
		return nil
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(aux.Flexure, &head); err != nil {
		return err
	}
	switch head.Kind {
	case kindSingly:
		var f Singly
		if err := json.Unmarshal(aux.Flexure, &f); err != nil {
			return err
		}
		s.Flexure = f
	case kindDoubly:
		var f Doubly
		if err := json.Unmarshal(aux.Flexure, &f); err != nil {
			return err
		}
		s.Flexure = f
	default:
		return fmt.Errorf("unknown flexure kind %q", head.Kind)
	}
	return nil
}

type ShearProvision string

const (
	ShearNone     ShearProvision = "none" // concrete alone, no links
	ShearNominal  ShearProvision = "nominal"
	ShearMinimum  ShearProvision = "minimum"
	ShearDesigned ShearProvision = "designed"
)

// ShearDesign is the shear check of one support face.
type ShearDesign struct {
	Index        int            `json:"index"`
	Force        float64        `json:"force_kn"`
	Stress       float64        `json:"stress_mpa"`
	Capacity     float64        `json:"concrete_capacity_mpa"`
	MaxStress    float64        `json:"max_stress_mpa"`
	Provision    ShearProvision `json:"provision"`
	LinkDiameter float64        `json:"link_diameter_mm,omitempty"`
	Legs         int            `json:"legs,omitempty"`
	Spacing      float64        `json:"spacing_mm,omitempty"`
	AsvOverSv    float64        `json:"asv_over_sv,omitempty"`
	Designation  string         `json:"designation,omitempty"`
}

// Deflection is the span/effective-depth serviceability check.
type Deflection struct {
	SpanDepthRatio          float64 `json:"span_depth_ratio"`
	BasicRatio              float64 `json:"basic_ratio"`
	TensionModification     float64 `json:"tension_modification"`
	CompressionModification float64 `json:"compression_modification"`
	AllowableRatio          float64 `json:"allowable_ratio"`
	Pass                    bool    `json:"pass"`
}

// ColumnSection is the axial design of one column or wall section.
type ColumnSection struct {
	Index          int     `json:"index"`
	Axial          float64 `json:"axial_kn"`
	Moment         float64 `json:"moment_knm"`
	Eccentricity   float64 `json:"eccentricity_mm"`
	Mode           string  `json:"mode"` // axial or combined
	Required       float64 `json:"required_mm2"`
	Minimum        float64 `json:"minimum_mm2"`
	Maximum        float64 `json:"maximum_mm2"`
	MinimumGoverns bool    `json:"minimum_reinforcement_governs"`
}

// ColumnDesign is the design of a short braced column or a wall.
type ColumnDesign struct {
	Slenderness  float64              `json:"slenderness"`
	Sections     []ColumnSection      `json:"sections"`
	Required     float64              `json:"required_mm2"`
	Bars         *arrange.Arrangement `json:"bars_per_face,omitempty"`
	Mesh         *arrange.Mesh        `json:"mesh_per_face,omitempty"`
	TotalBars    int                  `json:"total_bars,omitempty"`
	Provided     float64              `json:"provided_mm2"`
	LinkDiameter float64              `json:"link_diameter_mm,omitempty"`
	LinkSpacing  float64              `json:"link_spacing_mm,omitempty"`
	Designation  string               `json:"designation"`
}

// Flags are the code-check outcomes of a design.
type Flags struct {
	MinimumReinforcementGoverns bool `json:"minimum_reinforcement_governs"`
	DoublyReinforced            bool `json:"doubly_reinforced"`
	DeflectionOK                bool `json:"deflection_ok"`
}

// Result is the immutable outcome of one design request.
type Result struct {
	Code              string          `json:"code"`
	Element           Element         `json:"element"`
	Support           Support         `json:"support"`
	Width             float64         `json:"width_mm"`
	Depth             float64         `json:"depth_mm"`
	EffectiveDepth    float64         `json:"effective_depth_mm"`
	RequiredSteelArea float64         `json:"required_steel_area_mm2"`
	Sections          []SectionDesign `json:"sections,omitempty"`
	Shear             []ShearDesign   `json:"shear,omitempty"`
	Deflection        *Deflection     `json:"deflection,omitempty"`
	Column            *ColumnDesign   `json:"column,omitempty"`
	Flags             Flags           `json:"flags"`
	Notes             string          `json:"notes"`
}
