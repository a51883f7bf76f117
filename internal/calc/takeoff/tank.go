package takeoff

import (
	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/validate"
)

// Tank is a rectangular reinforced concrete water tank. BuriedDepth is the
// depth of the underside of the base below ground; zero means the tank
// stands on a blinded formation at ground level.
type Tank struct {
	ID     string  `json:"id"`
	Length float64 `json:"length_m"` // internal
	Width  float64 `json:"width_m"`
	Height float64 `json:"height_m"`

	WallThickness float64 `json:"wall_thickness_m,omitempty"` // 0.2
	BaseThickness float64 `json:"base_thickness_m,omitempty"` // 0.2
	RoofThickness float64 `json:"roof_thickness_m,omitempty"` // 0.15
	Blinding      float64 `json:"blinding_m,omitempty"`       // 0.05
	BuriedDepth   float64 `json:"buried_depth_m,omitempty"`

	Concrete      string  `json:"concrete,omitempty"` // reinforced_concrete
	OpenTop       bool    `json:"open_top,omitempty"`
	Render        bool    `json:"render,omitempty"`
	AccessCovers  int     `json:"access_covers,omitempty"`
	AccessOpening float64 `json:"access_opening_m,omitempty"` // 0.6
}

func (Tank) Kind() string { return KindTank }

func (t Tank) withDefaults() Tank {
	t.Concrete = orDefaultTag(t.Concrete, "reinforced_concrete")
	t.WallThickness = orDefault(t.WallThickness, 0.2)
	t.BaseThickness = orDefault(t.BaseThickness, 0.2)
	t.RoofThickness = orDefault(t.RoofThickness, 0.15)
	t.Blinding = orDefault(t.Blinding, 0.05)
	t.AccessOpening = orDefault(t.AccessOpening, 0.6)
	if t.OpenTop {
		t.RoofThickness = 0
	}
	return t
}

func (t Tank) overallHeight() float64 {
	return t.BaseThickness + t.Height + t.RoofThickness
}

func (t Tank) validate(env Env) error {
	c := validate.NewGeometry()
	c.Check(t.ID != "", env.field("id"), t.ID, "id must not be empty")
	c.Positive(env.field("length_m"), t.Length)
	c.Positive(env.field("width_m"), t.Width)
	c.Positive(env.field("height_m"), t.Height)
	c.Positive(env.field("wall_thickness_m"), t.WallThickness)
	c.Positive(env.field("base_thickness_m"), t.BaseThickness)
	c.NonNegative(env.field("roof_thickness_m"), t.RoofThickness)
	c.NonNegative(env.field("blinding_m"), t.Blinding)
	c.NonNegative(env.field("buried_depth_m"), t.BuriedDepth)
	c.Check(t.BuriedDepth <= t.overallHeight(), env.field("buried_depth_m"), t.BuriedDepth,
		"buried depth must not exceed the overall tank height")
	c.Check(t.AccessCovers >= 0, env.field("access_covers"), t.AccessCovers, "access_covers must be >= 0")
	c.Check(!t.OpenTop || t.AccessCovers == 0, env.field("access_covers"), t.AccessCovers,
		"an open tank has no access covers")
	c.Check(float64(t.AccessCovers)*t.AccessOpening*t.AccessOpening < t.Length*t.Width,
		env.field("access_opening_m"), t.AccessOpening, "access openings must be smaller than the roof")
	return c.Err()
}

func (t Tank) Takeoff(env Env) ([]boq.Record, error) {
	t = t.withDefaults()
	if err := t.validate(env); err != nil {
		return nil, err
	}
	conc, err := lookupMaterial(env, "concrete", t.Concrete, "concrete")
	if err != nil {
		return nil, err
	}
	blind, err := lookupMaterial(env, "concrete", "blinding", "concrete")
	if err != nil {
		return nil, err
	}
	rate, err := env.Table.ReinforcementRate(KindTank)
	if err != nil {
		return nil, err
	}

	inner := plan{l: t.Length, w: t.Width}
	outer := inner.grow(t.WallThickness)
	centre := inner.grow(t.WallThickness / 2)
	pitPlan := outer.grow(workingSpace)
	covers := float64(t.AccessCovers)
	opening := t.AccessOpening
	concCode := func(base string) string { return materialCode(base, t.Concrete) }

	s := newSheet(t.ID, KindTank)

	if t.BuriedDepth > 0 {
		depth := t.BuriedDepth + t.Blinding + env.Project.GroundVariation
		s.book("E10", "E11", "pit", 1, pitPlan.l, pitPlan.w, pit(depth, env.Project))
		if env.Project.Planking {
			s.addPerimeter("E30", "", "pit sides", 1, pitPlan, depth)
		}
	}
	s.addArea(materialCode("C05", "blinding"), blind.String(), "base", 1, outer, t.Blinding)

	base := outer.l * outer.w * t.BaseThickness
	walls := 2 * (centre.l + centre.w) * t.WallThickness * t.Height
	roof := (outer.l*outer.w - covers*opening*opening) * t.RoofThickness
	s.addArea(concCode("C30"), conc.String(), "base", 1, outer, t.BaseThickness)
	s.addPerimeter(concCode("C31"), conc.String(), "walls", 1, centre, t.WallThickness, t.Height)
	s.addPerimeter("F20", "", "inner face", 1, inner, t.Height)
	s.addPerimeter("F20", "", "outer face", 1, outer, t.Height)
	if !t.OpenTop {
		s.addArea(concCode("C32"), conc.String(), "roof", 1, outer, t.RoofThickness)
		s.add(concCode("C32"), conc.String(), "access openings", -covers, opening, opening, t.RoofThickness)
		s.addArea("F21", "", "roof soffit", 1, inner)
		s.add("F21", "", "access openings", -covers, opening, opening)
		s.add("X20", "", "access covers", covers)
	}

	s.add("R10.TANK", "tanks", "base, walls and roof", rate, base+walls+roof)

	if t.Render {
		s.addPerimeter("P20", "", "internal walls", 1, inner, t.Height)
		s.addArea("P20", "", "floor", 1, inner)
	}

	if t.BuriedDepth > 0 {
		below := t.BuriedDepth + t.Blinding
		s.add("E40", "", "pit", 1, pitPlan.l, pitPlan.w, below+env.Project.GroundVariation)
		s.addArea("E40", "", "structure", -1, outer, below)
		s.addArea("E50", "", "structure", 1, outer, below)
	}

	return s.records, nil
}
