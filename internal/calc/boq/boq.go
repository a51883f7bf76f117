// Package boq merges dimensioned takeoff records into coded bill of
// quantities line items.
//
// Every line item keeps the dimensions that produced it, so each quantity
// can be traced back to the component and part it came from. The quantity
// of an item is always the sum of its dimension values.
package boq

import (
	"cmp"
	"slices"

	"Civcalc/internal/calcerr"
)

// Dimension is one traceable contribution to a quantity: Times × the
// product of Dims. Deductions carry a negative Times.
type Dimension struct {
	Source    string    `json:"source"`
	Component string    `json:"component"`
	Note      string    `json:"note"`
	Times     float64   `json:"times"`
	Dims      []float64 `json:"dims"`
	Value     float64   `json:"value"`
}

// Dim builds a dimension and computes its value.
func Dim(source, component, note string, times float64, dims ...float64) Dimension {
	v := times
	for _, d := range dims {
		v *= d
	}
	return Dimension{Source: source, Component: component, Note: note, Times: times, Dims: dims, Value: v}
}

// Record is a dimension booked against a work code. Qualifier fills the
// description of codes such as "%s in manhole bed".
type Record struct {
	Code      string    `json:"code"`
	Qualifier string    `json:"qualifier,omitempty"`
	Unit      string    `json:"unit"`
	Dimension Dimension `json:"dimension"`
}

type LineItem struct {
	Code        string      `json:"code"`
	Category    Category    `json:"category"`
	Description string      `json:"description"`
	Unit        string      `json:"unit"`
	Quantity    float64     `json:"quantity"`
	Dimensions  []Dimension `json:"dimensions"`
}

// Project is the metadata and site conditions of a takeoff request.
type Project struct {
	Name string `json:"name"`
	// Rock below RockStartDepth (m below ground) is excavated separately.
	Rock           bool    `json:"rock,omitempty"`
	RockStartDepth float64 `json:"rock_start_depth_m,omitempty"`
	Planking       bool    `json:"planking,omitempty"`
	// SiteClearanceArea in m² adds a site clearance item.
	SiteClearanceArea float64 `json:"site_clearance_area_m2,omitempty"`
	// GroundVariation is an allowance in m added to every excavation depth
	// where the existing ground is uneven.
	GroundVariation float64 `json:"ground_variation_m,omitempty"`
}

type Response struct {
	Project Project    `json:"project"`
	Items   []LineItem `json:"items"`
}

type key struct {
	code, unit string
}

// Aggregate merges records into line items keyed by (code, unit). The
// result is the same for any ordering of records: dimensions are sorted
// before they are summed, and items are ordered by category then code.
func Aggregate(cat *Catalogue, records []Record) ([]LineItem, error) {
	byKey := map[key]*LineItem{}
	for _, r := range records {
		w, ok := cat.Lookup(r.Code)
		if !ok {
			return nil, calcerr.New(calcerr.CodeInternal, "work code %q is not catalogued", r.Code)
		}
		unit := r.Unit
		if unit == "" {
			unit = w.Unit
		}
		k := key{r.Code, unit}
		item, ok := byKey[k]
		if !ok {
			item = &LineItem{Code: r.Code, Category: w.Category, Description: w.Describe(r.Qualifier), Unit: unit}
			byKey[k] = item
		}
		item.Dimensions = append(item.Dimensions, r.Dimension)
	}

	items := make([]LineItem, 0, len(byKey))
	for _, item := range byKey {
		slices.SortFunc(item.Dimensions, compareDimensions)
		for _, d := range item.Dimensions {
			item.Quantity += d.Value
		}
		items = append(items, *item)
	}
	slices.SortFunc(items, func(a, b LineItem) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Unit, b.Unit),
		)
	})
	return items, nil
}

func compareDimensions(a, b Dimension) int {
	if c := cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Component, b.Component),
		cmp.Compare(a.Note, b.Note),
		cmp.Compare(a.Value, b.Value),
		cmp.Compare(a.Times, b.Times),
	); c != 0 {
		return c
	}
	return slices.Compare(a.Dims, b.Dims)
}
