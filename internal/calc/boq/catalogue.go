package boq

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category groups work codes. Items are listed in category order.
type Category int

const (
	Earthworks Category = iota
	Concrete
	Formwork
	Reinforcement
	Masonry
	Finishes
	Fittings
)

var categoryNames = [...]string{"earthworks", "concrete", "formwork", "reinforcement", "masonry", "finishes", "fittings"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	i := slices.Index(categoryNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("unknown category %q", b)
	}
	*c = Category(i)
	return nil
}

// Work is one catalogue entry. Description may hold a single %s verb that
// is filled with the record's qualifier.
type Work struct {
	Category    Category
	Description string
	Unit        string
}

// Catalogue maps base work codes ("C10") to their work. A record code may
// extend the base with dot-separated suffixes ("C10.C20", "X30.150.UPVC").
type Catalogue struct {
	works map[string]Work
}

// Base returns the base work code of a record code.
func Base(code string) string {
	base, _, _ := strings.Cut(code, ".")
	return base
}

func (c *Catalogue) Lookup(code string) (Work, bool) {
	w, ok := c.works[Base(code)]
	return w, ok
}

// Describe renders the description of a record code.
func (w Work) Describe(qualifier string) string {
	if !strings.Contains(w.Description, "%s") {
		return w.Description
	}
	return upperFirst(fmt.Sprintf(w.Description, qualifier))
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// NewCatalogue builds a catalogue from explicit entries.
func NewCatalogue(works map[string]Work) *Catalogue {
	c := &Catalogue{works: make(map[string]Work, len(works))}
	for k, v := range works {
		c.works[k] = v
	}
	return c
}

// DefaultCatalogue returns the work codes used by the takeoff engine.
func DefaultCatalogue() *Catalogue {
	return NewCatalogue(map[string]Work{
		"E05": {Earthworks, "Site clearance, remove vegetation and topsoil", "m2"},
		"E10": {Earthworks, "Excavate pit in soil for manholes and tanks", "m3"},
		"E11": {Earthworks, "Excavate pit in rock for manholes and tanks", "m3"},
		"E20": {Earthworks, "Excavate trench in soil for pipes", "m3"},
		"E21": {Earthworks, "Excavate trench in rock for pipes", "m3"},
		"E30": {Earthworks, "Planking and strutting to sides of excavation", "m2"},
		"E40": {Earthworks, "Backfill with selected excavated material, compacted in layers", "m3"},
		"E50": {Earthworks, "Dispose of surplus excavated material off site", "m3"},
		"E60": {Earthworks, "%s bedding to pipes", "m3"},
		"E61": {Earthworks, "%s surround to pipes", "m3"},
		"E70": {Earthworks, "%s sub-base to external works", "m3"},
		"E80": {Earthworks, "Imported %s delivered to site", "t"},

		"C05": {Concrete, "%s under bases", "m3"},
		"C10": {Concrete, "%s in manhole bed", "m3"},
		"C11": {Concrete, "%s in manhole walls", "m3"},
		"C12": {Concrete, "%s in manhole cover slab", "m3"},
		"C13": {Concrete, "%s benching to manhole invert", "m3"},
		"C20": {Concrete, "%s bedding to pipes", "m3"},
		"C21": {Concrete, "%s surround to pipes", "m3"},
		"C30": {Concrete, "%s in tank base", "m3"},
		"C31": {Concrete, "%s in tank walls", "m3"},
		"C32": {Concrete, "%s in tank roof", "m3"},
		"C40": {Concrete, "%s in columns", "m3"},
		"C41": {Concrete, "%s in beams", "m3"},
		"C42": {Concrete, "%s in suspended slabs", "m3"},
		"C43": {Concrete, "%s in walls", "m3"},
		"C44": {Concrete, "%s in staircases", "m3"},
		"C45": {Concrete, "%s in foundations", "m3"},

		"F10": {Formwork, "Formwork to vertical faces of manhole walls", "m2"},
		"F11": {Formwork, "Formwork to soffit of manhole cover slab", "m2"},
		"F20": {Formwork, "Formwork to vertical faces of tank walls", "m2"},
		"F21": {Formwork, "Formwork to soffit of tank roof", "m2"},
		"F40": {Formwork, "Formwork to sides of columns", "m2"},
		"F41": {Formwork, "Formwork to sides and soffits of beams", "m2"},
		"F42": {Formwork, "Formwork to soffits of suspended slabs", "m2"},
		"F43": {Formwork, "Formwork to faces of walls", "m2"},
		"F44": {Formwork, "Formwork to soffits of staircases", "m2"},
		"F45": {Formwork, "Formwork to sides of foundations", "m2"},

		"R10": {Reinforcement, "High yield bar reinforcement in %s", "kg"},

		"M10": {Masonry, "%s walling to manholes", "m2"},

		"P10": {Finishes, "Cement:sand (1:4) plaster to internal faces of manholes", "m2"},
		"P20": {Finishes, "Cement:sand (1:3) waterproof render to internal faces of tanks", "m2"},
		"P30": {Finishes, "%s paving", "m2"},

		"X10": {Fittings, "Manhole cover and frame, heavy duty", "nr"},
		"X11": {Fittings, "Galvanised step irons built into manhole walls", "nr"},
		"X12": {Fittings, "Half-round channel in manhole invert", "m"},
		"X20": {Fittings, "Tank access cover and frame", "nr"},
		"X30": {Fittings, "%s pipe laid in trench", "m"},
		"X40": {Fittings, "%s kerb on concrete bed and haunch", "m"},
		"X41": {Fittings, "%s fencing", "m"},
		"X42": {Fittings, "%s surface water drain", "m"},
	})
}
