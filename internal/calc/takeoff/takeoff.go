// Package takeoff converts component geometries into dimensioned quantity
// records and aggregates them into a bill of quantities.
//
// All takeoff geometry is in metres and levels are in metres above datum,
// except pipe diameters which are given in millimetres. Each component books
// its quantities as boq.Record values whose dimensions name the component
// and the part they measure.
package takeoff

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calc/validate"
	"Civcalc/internal/calcerr"
)

// workingSpace is the clearance excavated around a structure on each side, m.
const workingSpace = 0.3

// Env is what a component needs to take itself off.
type Env struct {
	Table   *material.Table
	Project boq.Project
	// Field prefixes the field names of validation errors, e.g. "components[2]".
	Field string
}

func (e Env) field(name string) string {
	if e.Field == "" {
		return name
	}
	return e.Field + "." + name
}

// Component is one takeoff item: Manhole, Pipe, Tank, ExternalWorksItem or
// SuperstructureElement.
type Component interface {
	Kind() string
	Takeoff(env Env) ([]boq.Record, error)
}

type Engine struct {
	table     *material.Table
	catalogue *boq.Catalogue
}

func NewEngine(t *material.Table, cat *boq.Catalogue) *Engine {
	return &Engine{table: t, catalogue: cat}
}

func (e *Engine) Catalogue() *boq.Catalogue { return e.catalogue }

// Calculate takes off every component and merges the records into a bill
// of quantities. The first invalid component fails the whole request.
func (e *Engine) Calculate(p boq.Project, components []Component) (boq.Response, error) {
	c := validate.NewGeometry()
	c.NonNegative("project.rock_start_depth_m", p.RockStartDepth)
	c.NonNegative("project.site_clearance_area_m2", p.SiteClearanceArea)
	c.Range("project.ground_variation_m", p.GroundVariation, 0, 5, "m")
	if err := c.Err(); err != nil {
		return boq.Response{}, err
	}

	var records []boq.Record
	if p.SiteClearanceArea > 0 {
		records = append(records, boq.Record{
			Code:      "E05",
			Dimension: boq.Dim(siteSource(p), "site", "clearance", 1, p.SiteClearanceArea),
		})
	}
	for i, comp := range components {
		env := Env{Table: e.table, Project: p, Field: fmt.Sprintf("components[%d]", i)}
		recs, err := comp.Takeoff(env)
		if err != nil {
			return boq.Response{}, err
		}
		records = append(records, recs...)
	}

	items, err := boq.Aggregate(e.catalogue, records)
	if err != nil {
		return boq.Response{}, err
	}
	return boq.Response{Project: p, Items: items}, nil
}

func siteSource(p boq.Project) string {
	if p.Name == "" {
		return "site"
	}
	return p.Name
}

// sheet collects the records of one component.
type sheet struct {
	source    string
	component string
	records   []boq.Record
}

func newSheet(source, component string) *sheet {
	return &sheet{source: source, component: component}
}

// add books times × dims against code. Zero contributions are dropped.
func (s *sheet) add(code, qualifier, note string, times float64, dims ...float64) {
	d := boq.Dim(s.source, s.component, note, times, dims...)
	if d.Value == 0 {
		return
	}
	s.records = append(s.records, boq.Record{Code: code, Qualifier: qualifier, Dimension: d})
}

// gravity converts a unit weight in kN/m³ to a density in t/m³.
const gravity = 9.81

// weigh books the tonnage of an imported granular material: times × dims
// (m³) × its density.
func (s *sheet) weigh(m material.Material, note string, times float64, dims ...float64) {
	dims = append(slices.Clip(dims), m.UnitWeight/gravity)
	s.add(materialCode("E80", m.Name), m.Label, note, times, dims...)
}

// materialCode suffixes a base code with a material name: "C10.CONCRETE".
func materialCode(base, name string) string {
	return base + "." + strings.ToUpper(name)
}

// lookupMaterial resolves a material of one of the given kinds.
func lookupMaterial(env Env, field, name string, kinds ...string) (material.Material, error) {
	m, err := env.Table.Material(name)
	if err != nil {
		return material.Material{}, calcerr.UnknownMaterial(env.field(field), name)
	}
	for _, k := range kinds {
		if m.Kind == k {
			return m, nil
		}
	}
	return material.Material{}, calcerr.UnknownMaterial(env.field(field), name)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultTag(v, def string) string {
	if v = validate.Tag(v); v == "" {
		return def
	}
	return v
}

// Input is the JSON form of a takeoff request. Each component is an object
// with a "type" discriminator.
type Input struct {
	Project    boq.Project       `json:"project"`
	Components []json.RawMessage `json:"components"`
}

// Parse decodes the components of an Input.
func (in Input) Parse() ([]Component, error) {
	out := make([]Component, 0, len(in.Components))
	for i, raw := range in.Components {
		c, err := Decode(raw)
		if err != nil {
			if ce, ok := err.(*calcerr.Error); ok {
				ce.Field = fmt.Sprintf("components[%d].%s", i, ce.Field)
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Decode decodes one component from its tagged JSON form.
func Decode(raw json.RawMessage) (Component, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, calcerr.InvalidGeometry("type", nil, "component must be a JSON object")
	}
	var (
		c   Component
		err error
	)
	switch validate.Tag(tag.Type) {
	case KindManhole:
		var m Manhole
		err = json.Unmarshal(raw, &m)
		c = m
	case KindPipe:
		var p Pipe
		err = json.Unmarshal(raw, &p)
		c = p
	case KindTank:
		var t Tank
		err = json.Unmarshal(raw, &t)
		c = t
	case KindExternal:
		var x ExternalWorksItem
		err = json.Unmarshal(raw, &x)
		c = x
	case KindSuperstructure:
		var s SuperstructureElement
		err = json.Unmarshal(raw, &s)
		c = s
	default:
		return nil, calcerr.InvalidGeometry("type", tag.Type,
			"type must be one of manhole, pipe, tank, external, superstructure")
	}
	if err != nil {
		return nil, calcerr.InvalidGeometry("type", tag.Type, "malformed "+tag.Type+": "+err.Error())
	}
	return c, nil
}

// Encode renders a component in its tagged JSON form.
func Encode(c Component) (json.RawMessage, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(c.Kind())
	return json.Marshal(fields)
}

// CalculateInput parses and takes off a JSON request.
func (e *Engine) CalculateInput(in Input) (boq.Response, error) {
	components, err := in.Parse()
	if err != nil {
		return boq.Response{}, err
	}
	return e.Calculate(in.Project, components)
}
