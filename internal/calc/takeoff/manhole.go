package takeoff

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/validate"
)

const (
	KindManhole        = "manhole"
	KindPipe           = "pipe"
	KindTank           = "tank"
	KindExternal       = "external"
	KindSuperstructure = "superstructure"
)

const (
	ShapeRectangular = "rectangular"
	ShapeCircular    = "circular"

	stepIronPitch = 0.3 // m
)

// Manhole is an inspection chamber built on a concrete bed with a cover
// slab at ground level. Zero thicknesses take the defaults noted.
type Manhole struct {
	ID    string `json:"id"`
	Shape string `json:"shape,omitempty"`
	// Internal plan dimensions: Length × Width, or Diameter when circular.
	Length   float64 `json:"length_m,omitempty"`
	Width    float64 `json:"width_m,omitempty"`
	Diameter float64 `json:"diameter_m,omitempty"`

	InvertLevel float64 `json:"invert_level"`
	GroundLevel float64 `json:"ground_level"`

	WallThickness float64 `json:"wall_thickness_m,omitempty"` // 0.2
	BedThickness  float64 `json:"bed_thickness_m,omitempty"`  // 0.15
	SlabThickness float64 `json:"slab_thickness_m,omitempty"` // 0.15

	// WallMaterial is a concrete or masonry material; Concrete is used for
	// the bed, slab and benching.
	WallMaterial string `json:"wall_material,omitempty"`
	Concrete     string `json:"concrete,omitempty"`

	Benching       bool    `json:"benching,omitempty"`
	BenchingHeight float64 `json:"benching_height_m,omitempty"` // 0.3
	Plaster        bool    `json:"plaster,omitempty"`
	Cover          bool    `json:"cover,omitempty"`
	CoverOpening   float64 `json:"cover_opening_m,omitempty"` // 0.6
	Channel        bool    `json:"channel,omitempty"`
	StepIrons      bool    `json:"step_irons,omitempty"`
}

func (Manhole) Kind() string { return KindManhole }

func (m Manhole) withDefaults() Manhole {
	m.Shape = orDefaultTag(m.Shape, ShapeRectangular)
	m.WallMaterial = orDefaultTag(m.WallMaterial, "concrete")
	m.Concrete = orDefaultTag(m.Concrete, "concrete")
	m.WallThickness = orDefault(m.WallThickness, 0.2)
	m.BedThickness = orDefault(m.BedThickness, 0.15)
	m.SlabThickness = orDefault(m.SlabThickness, 0.15)
	m.BenchingHeight = orDefault(m.BenchingHeight, 0.3)
	m.CoverOpening = orDefault(m.CoverOpening, 0.6)
	return m
}

func (m Manhole) validate(env Env) error {
	c := validate.NewGeometry()
	c.Check(m.ID != "", env.field("id"), m.ID, "id must not be empty")
	c.OneOf(env.field("shape"), m.Shape, ShapeRectangular, ShapeCircular)
	if m.Shape == ShapeCircular {
		c.Positive(env.field("diameter_m"), m.Diameter)
	} else {
		c.Positive(env.field("length_m"), m.Length)
		c.Positive(env.field("width_m"), m.Width)
	}
	c.Check(m.InvertLevel < m.GroundLevel, env.field("invert_level"), m.InvertLevel,
		"invert level must be below ground level")
	c.NonNegative(env.field("wall_thickness_m"), m.WallThickness)
	c.NonNegative(env.field("bed_thickness_m"), m.BedThickness)
	c.NonNegative(env.field("slab_thickness_m"), m.SlabThickness)
	c.NonNegative(env.field("benching_height_m"), m.BenchingHeight)
	c.NonNegative(env.field("cover_opening_m"), m.CoverOpening)
	depth := m.GroundLevel - m.InvertLevel
	c.Check(depth > m.SlabThickness, env.field("slab_thickness_m"), m.SlabThickness,
		"cover slab must be thinner than the manhole depth")
	if m.Benching {
		c.Check(m.BenchingHeight < depth-m.SlabThickness, env.field("benching_height_m"), m.BenchingHeight,
			"benching must be lower than the walls")
	}
	inner := math.Min(m.Length, m.Width)
	if m.Shape == ShapeCircular {
		inner = m.Diameter
	}
	if m.Cover {
		c.Check(m.CoverOpening < inner, env.field("cover_opening_m"), m.CoverOpening,
			"cover opening must be smaller than the manhole")
	}
	return c.Err()
}

// plan is the geometry of a rectangular or circular outline.
type plan struct {
	circular bool
	l, w     float64 // rectangular sides, or diameter twice
}

func (p plan) grow(by float64) plan {
	return plan{circular: p.circular, l: p.l + 2*by, w: p.w + 2*by}
}

// addArea books the plan area times depth: π/4·D²·depth or L·W·depth.
func (s *sheet) addArea(code, qualifier, note string, times float64, p plan, depth ...float64) {
	if p.circular {
		s.add(code, qualifier, note, times*math.Pi/4, append([]float64{p.l, p.l}, depth...)...)
		return
	}
	s.add(code, qualifier, note, times, append([]float64{p.l, p.w}, depth...)...)
}

// addPerimeter books the perimeter times the given dimensions.
func (s *sheet) addPerimeter(code, qualifier, note string, times float64, p plan, dims ...float64) {
	if p.circular {
		s.add(code, qualifier, note, times*math.Pi, append([]float64{p.l}, dims...)...)
		return
	}
	s.add(code, qualifier, note, times*2, append([]float64{p.l + p.w}, dims...)...)
}

func (m Manhole) Takeoff(env Env) ([]boq.Record, error) {
	m = m.withDefaults()
	if err := m.validate(env); err != nil {
		return nil, err
	}
	conc, err := lookupMaterial(env, "concrete", m.Concrete, "concrete")
	if err != nil {
		return nil, err
	}
	wall, err := lookupMaterial(env, "wall_material", m.WallMaterial, "concrete", "masonry")
	if err != nil {
		return nil, err
	}

	inner := plan{l: m.Length, w: m.Width}
	if m.Shape == ShapeCircular {
		inner = plan{circular: true, l: m.Diameter, w: m.Diameter}
	}
	t := m.WallThickness
	outer := inner.grow(t)
	centre := inner.grow(t / 2)
	pitPlan := outer.grow(workingSpace)

	depth := m.GroundLevel - m.InvertLevel
	excDepth := depth + m.BedThickness + env.Project.GroundVariation
	wallHeight := depth - m.SlabThickness
	concCode := func(base string) string { return materialCode(base, m.Concrete) }

	s := newSheet(m.ID, KindManhole)

	ex := pit(excDepth, env.Project)
	if pitPlan.circular {
		s.book("E10", "E11", "pit", math.Pi/4, pitPlan.l, pitPlan.l, ex)
	} else {
		s.book("E10", "E11", "pit", 1, pitPlan.l, pitPlan.w, ex)
	}
	if env.Project.Planking {
		s.addPerimeter("E30", "", "pit sides", 1, pitPlan, excDepth)
	}

	s.addArea(concCode("C10"), conc.String(), "bed", 1, outer, m.BedThickness)

	if wall.Kind == "masonry" {
		q := fmt.Sprintf("%.0f mm %s", t*1000, wall.Label)
		code := fmt.Sprintf("%s.%.0f", materialCode("M10", m.WallMaterial), t*1000)
		s.addPerimeter(code, q, "walls", 1, centre, wallHeight)
	} else {
		s.addPerimeter(materialCode("C11", m.WallMaterial), wall.String(), "walls", 1, centre, t, wallHeight)
		s.addPerimeter("F10", "", "inner face", 1, inner, wallHeight)
		s.addPerimeter("F10", "", "outer face", 1, outer, wallHeight)
	}

	s.addArea(concCode("C12"), conc.String(), "slab", 1, outer, m.SlabThickness)
	s.addArea("F11", "", "slab soffit", 1, inner)
	if m.Cover {
		s.add(concCode("C12"), conc.String(), "cover opening", -1, m.CoverOpening, m.CoverOpening, m.SlabThickness)
		s.add("F11", "", "cover opening", -1, m.CoverOpening, m.CoverOpening)
		s.add("X10", "", "cover", 1)
	}

	if m.Benching {
		s.addArea(concCode("C13"), conc.String(), "benching", 0.5, inner, m.BenchingHeight)
	}
	if m.Plaster {
		s.addPerimeter("P10", "", "internal walls", 1, inner, wallHeight)
	}
	if m.Channel {
		s.add("X12", "", "channel", 1, inner.l)
	}
	if m.StepIrons {
		s.add("X11", "", "step irons", math.Floor(depth/stepIronPitch))
	}

	s.addArea("E40", "", "pit", 1, pitPlan, excDepth)
	s.addArea("E40", "", "structure", -1, outer, depth+m.BedThickness)
	s.addArea("E50", "", "structure", 1, outer, depth+m.BedThickness)

	return s.records, nil
}
