package takeoff

import (
	"fmt"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/validate"
)

const (
	ItemPaving  = "paving"
	ItemKerb    = "kerb"
	ItemFencing = "fencing"
	ItemDrain   = "drain"
)

// ExternalWorksItem is a linear or area item outside the buildings.
// Paving is measured by area, the others by length.
type ExternalWorksItem struct {
	ID       string  `json:"id"`
	Item     string  `json:"item"`
	Material string  `json:"material,omitempty"`
	Length   float64 `json:"length_m"`
	Width    float64 `json:"width_m,omitempty"`  // paving, drain (0.3)
	Height   float64 `json:"height_m,omitempty"` // fencing (1.8)
	// SubBase is the thickness of hardcore under paving, m.
	SubBase float64 `json:"sub_base_m,omitempty"`
}

func (ExternalWorksItem) Kind() string { return KindExternal }

func (x ExternalWorksItem) withDefaults() ExternalWorksItem {
	x.Item = validate.Tag(x.Item)
	switch x.Item {
	case ItemPaving:
		x.Material = orDefaultTag(x.Material, "interlocking")
	case ItemKerb:
		x.Material = orDefaultTag(x.Material, "concrete")
	case ItemFencing:
		x.Height = orDefault(x.Height, 1.8)
	case ItemDrain:
		x.Width = orDefault(x.Width, 0.3)
	}
	return x
}

func (x ExternalWorksItem) validate(env Env) error {
	c := validate.NewGeometry()
	c.Check(x.ID != "", env.field("id"), x.ID, "id must not be empty")
	c.OneOf(env.field("item"), x.Item, ItemPaving, ItemKerb, ItemFencing, ItemDrain)
	c.Positive(env.field("length_m"), x.Length)
	c.NonNegative(env.field("width_m"), x.Width)
	c.NonNegative(env.field("height_m"), x.Height)
	c.NonNegative(env.field("sub_base_m"), x.SubBase)
	if x.Item == ItemPaving {
		c.Positive(env.field("width_m"), x.Width)
	}
	return c.Err()
}

func (x ExternalWorksItem) Takeoff(env Env) ([]boq.Record, error) {
	x = x.withDefaults()
	if err := x.validate(env); err != nil {
		return nil, err
	}

	s := newSheet(x.ID, KindExternal)
	switch x.Item {
	case ItemPaving:
		m, err := lookupMaterial(env, "material", x.Material, "paving")
		if err != nil {
			return nil, err
		}
		s.add(materialCode("P30", x.Material), m.Label, "paving", 1, x.Length, x.Width)
		if x.SubBase > 0 {
			hc, err := lookupMaterial(env, "material", "hardcore", "granular")
			if err != nil {
				return nil, err
			}
			s.add(materialCode("E70", "hardcore"), hc.Label, "sub-base", 1, x.Length, x.Width, x.SubBase)
			s.weigh(hc, "sub-base", 1, x.Length, x.Width, x.SubBase)
		}
	case ItemKerb:
		m, err := lookupMaterial(env, "material", x.Material, "concrete")
		if err != nil {
			return nil, err
		}
		s.add(materialCode("X40", x.Material), m.Label, "kerb", 1, x.Length)
	case ItemFencing:
		code := fmt.Sprintf("X41.%.0f", x.Height*1000)
		s.add(code, fmt.Sprintf("%.1f m high", x.Height), "fencing", 1, x.Length)
	case ItemDrain:
		code := fmt.Sprintf("X42.%.0f", x.Width*1000)
		s.add(code, fmt.Sprintf("%.0f mm wide", x.Width*1000), "drain", 1, x.Length)
	}
	return s.records, nil
}
