package takeoff

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/validate"
)

// Pipe is one pipe run laid in an open trench between two nodes.
type Pipe struct {
	ID       string  `json:"id"`
	From     string  `json:"from,omitempty"`
	To       string  `json:"to,omitempty"`
	Length   float64 `json:"length_m"`
	Diameter float64 `json:"diameter_mm"`
	Material string  `json:"material,omitempty"` // upvc

	// Trench depths to formation at each end. EndDepth defaults to
	// StartDepth + Length × Gradient.
	StartDepth float64 `json:"start_depth_m"`
	EndDepth   float64 `json:"end_depth_m,omitempty"`
	Gradient   float64 `json:"gradient,omitempty"`

	TrenchWidth       float64 `json:"trench_width_m,omitempty"`       // D + 0.6
	BeddingThickness  float64 `json:"bedding_thickness_m,omitempty"`  // 0.1
	SurroundThickness float64 `json:"surround_thickness_m,omitempty"` // 0.15
	BeddingMaterial   string  `json:"bedding_material,omitempty"`     // granular
}

func (Pipe) Kind() string { return KindPipe }

func (p Pipe) withDefaults() Pipe {
	p.Material = orDefaultTag(p.Material, "upvc")
	p.BeddingMaterial = orDefaultTag(p.BeddingMaterial, "granular")
	if p.EndDepth == 0 {
		p.EndDepth = p.StartDepth + p.Length*p.Gradient
	}
	p.TrenchWidth = orDefault(p.TrenchWidth, p.Diameter/1000+2*workingSpace)
	p.BeddingThickness = orDefault(p.BeddingThickness, 0.1)
	p.SurroundThickness = orDefault(p.SurroundThickness, 0.15)
	return p
}

// zone is the depth of bedding, pipe and surround above formation, m.
func (p Pipe) zone() float64 {
	return p.BeddingThickness + p.Diameter/1000 + p.SurroundThickness
}

func (p Pipe) validate(env Env) error {
	c := validate.NewGeometry()
	c.Check(p.ID != "", env.field("id"), p.ID, "id must not be empty")
	c.Positive(env.field("length_m"), p.Length)
	c.Range(env.field("diameter_mm"), p.Diameter, 50, 3000, "mm")
	c.Positive(env.field("start_depth_m"), p.StartDepth)
	c.Positive(env.field("end_depth_m"), p.EndDepth)
	c.Positive(env.field("trench_width_m"), p.TrenchWidth)
	c.NonNegative(env.field("bedding_thickness_m"), p.BeddingThickness)
	c.NonNegative(env.field("surround_thickness_m"), p.SurroundThickness)
	c.Check(p.TrenchWidth > p.Diameter/1000, env.field("trench_width_m"), p.TrenchWidth,
		"trench must be wider than the pipe")
	shallow := math.Min(p.StartDepth, p.EndDepth)
	c.Check(shallow > p.zone(), env.field("start_depth_m"), shallow,
		"trench must be deeper than the bedding and surround zone")
	return c.Err()
}

func (p Pipe) Takeoff(env Env) ([]boq.Record, error) {
	p = p.withDefaults()
	if err := p.validate(env); err != nil {
		return nil, err
	}
	pm, err := lookupMaterial(env, "material", p.Material, "pipe")
	if err != nil {
		return nil, err
	}
	bed, err := lookupMaterial(env, "bedding_material", p.BeddingMaterial, "granular", "concrete")
	if err != nil {
		return nil, err
	}

	gv := env.Project.GroundVariation
	d1, d2 := p.StartDepth+gv, p.EndDepth+gv
	ex := trench(d1, d2, env.Project)
	w, l := p.TrenchWidth, p.Length
	dia := p.Diameter / 1000

	s := newSheet(p.ID, KindPipe)
	s.book("E20", "E21", "trench", 1, w, l, ex)
	if env.Project.Planking {
		s.add("E30", "", "trench sides", 2, l, ex.MeanDepth())
	}

	bedCode, surCode := "E60", "E61"
	if bed.Kind == "concrete" {
		bedCode, surCode = "C20", "C21"
	}
	bedCode = materialCode(bedCode, p.BeddingMaterial)
	surCode = materialCode(surCode, p.BeddingMaterial)
	s.add(bedCode, bed.String(), "bedding", 1, w, l, p.BeddingThickness)
	s.add(surCode, bed.String(), "surround", 1, w, l, dia+p.SurroundThickness)
	s.add(surCode, bed.String(), "pipe displacement", -math.Pi/4, dia, dia, l)
	if bed.Kind == "granular" {
		s.weigh(bed, "bedding", 1, w, l, p.BeddingThickness)
		s.weigh(bed, "surround", 1, w, l, dia+p.SurroundThickness)
		s.weigh(bed, "pipe displacement", -math.Pi/4, dia, dia, l)
	}

	code := fmt.Sprintf("X30.%.0f.%s", p.Diameter, validate.Grade(p.Material))
	s.add(code, fmt.Sprintf("%.0f mm %s", p.Diameter, pm.Label), "laying", 1, l)

	s.add("E40", "", "trench", 1, w, l, ex.MeanDepth())
	s.add("E40", "", "pipe zone", -1, w, l, p.zone())
	s.add("E50", "", "pipe zone", 1, w, l, p.zone())

	return s.records, nil
}
