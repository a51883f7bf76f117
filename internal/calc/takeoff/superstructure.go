package takeoff

import (
	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/validate"
)

// superstructureWork holds the work codes and formwork rule of one element.
type superstructureWork struct {
	concrete, formwork string
	plural             string
	// formwork area of one element of length l, width w and depth d
	form func(l, w, d float64) (times float64, dims []float64)
}

var superstructureWorks = map[string]superstructureWork{
	"column": {"C40", "F40", "columns", func(l, w, d float64) (float64, []float64) {
		return 2, []float64{w + d, l}
	}},
	"beam": {"C41", "F41", "beams", func(l, w, d float64) (float64, []float64) {
		return 1, []float64{w + 2*d, l}
	}},
	"slab": {"C42", "F42", "suspended slabs", func(l, w, d float64) (float64, []float64) {
		return 1, []float64{l, w}
	}},
	"wall": {"C43", "F43", "walls", func(l, w, d float64) (float64, []float64) {
		return 2, []float64{l, d}
	}},
	"staircase": {"C44", "F44", "staircases", func(l, w, d float64) (float64, []float64) {
		return 1, []float64{l, w}
	}},
	"foundation": {"C45", "F45", "foundations", func(l, w, d float64) (float64, []float64) {
		return 2, []float64{l + w, d}
	}},
}

// SuperstructureElement is Count identical cast in-situ members of
// Length × Width × Depth. A column's Length is its height; a wall's Width
// is its thickness and Depth its height; a staircase's Length is measured
// along the slope.
type SuperstructureElement struct {
	ID       string  `json:"id"`
	Element  string  `json:"element"`
	Length   float64 `json:"length_m"`
	Width    float64 `json:"width_m"`
	Depth    float64 `json:"depth_m"`
	Count    int     `json:"count,omitempty"`    // 1
	Concrete string  `json:"concrete,omitempty"` // reinforced_concrete
}

func (SuperstructureElement) Kind() string { return KindSuperstructure }

func (e SuperstructureElement) Takeoff(env Env) ([]boq.Record, error) {
	e.Element = validate.Tag(e.Element)
	e.Concrete = orDefaultTag(e.Concrete, "reinforced_concrete")
	if e.Count == 0 {
		e.Count = 1
	}

	c := validate.NewGeometry()
	c.Check(e.ID != "", env.field("id"), e.ID, "id must not be empty")
	c.OneOf(env.field("element"), e.Element, "column", "beam", "slab", "wall", "staircase", "foundation")
	c.Positive(env.field("length_m"), e.Length)
	c.Positive(env.field("width_m"), e.Width)
	c.Positive(env.field("depth_m"), e.Depth)
	c.Check(e.Count > 0, env.field("count"), e.Count, "count must be > 0")
	if err := c.Err(); err != nil {
		return nil, err
	}

	conc, err := lookupMaterial(env, "concrete", e.Concrete, "concrete")
	if err != nil {
		return nil, err
	}
	rate, err := env.Table.ReinforcementRate(e.Element)
	if err != nil {
		return nil, err
	}

	w := superstructureWorks[e.Element]
	n := float64(e.Count)
	s := newSheet(e.ID, KindSuperstructure)
	s.add(materialCode(w.concrete, e.Concrete), conc.String(), e.Element, n, e.Length, e.Width, e.Depth)
	times, dims := w.form(e.Length, e.Width, e.Depth)
	s.add(w.formwork, "", e.Element, n*times, dims...)
	s.add(materialCode("R10", e.Element), w.plural, e.Element, n*rate, e.Length, e.Width, e.Depth)
	return s.records, nil
}
