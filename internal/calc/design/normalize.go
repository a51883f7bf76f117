package design

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calc/validate"
)

// member is a validated design request in working units.
type member struct {
	table    *material.Table
	arranger *arrange.Arranger

	code    string
	consts  material.Code
	element Element
	support Support

	b, h   float64 // width and overall depth, mm
	d      float64 // effective depth, mm
	dc     float64 // depth to compression steel, mm
	cover  float64
	link   float64
	mainD  float64
	fcu    float64
	fy     float64
	fyv    float64
	prefix string
	linkPx string

	minRatio float64
	maxRatio float64

	redistribution float64
	elFactor       float64

	spans   []float64 // m
	moments []float64
	shears  []float64
	axial   []float64
}

func (m *member) grossArea() float64 { return m.b * m.h }

func category(e Element) string {
	return string(e)
}

func hasLinks(e Element) bool {
	return e == ElementBeam || e == ElementColumn
}

// normalize range-checks a request and resolves its grades. It reports the
// first violation only; no member is returned on failure.
func normalize(t *material.Table, a AnalysisResult, p Parameters) (*member, error) {
	c := validate.New()

	m := &member{
		table:   t,
		code:    validate.Grade(p.Code),
		element: Element(validate.Tag(p.Element)),
		support: Support(validate.Tag(p.Support)),
	}
	if m.code == "" {
		m.code = CodeBS8110
	}
	if m.support == "" {
		m.support = SupportSimple
	}
	c.OneOf("element", string(m.element),
		string(ElementBeam), string(ElementColumn), string(ElementFoundation),
		string(ElementSlab), string(ElementWall), string(ElementStair))
	c.OneOf("support", string(m.support),
		string(SupportSimple), string(SupportContinuous), string(SupportCantilever))
	if err := c.Err(); err != nil {
		return nil, err
	}

	m.b = p.Width
	if m.b == 0 && (m.element == ElementSlab || m.element == ElementWall || m.element == ElementStair) {
		m.b = 1000
	}
	m.h = p.Depth
	c.Range("width", m.b, 50, 5000, "mm")
	c.Range("depth", m.h, 75, 5000, "mm")

	m.link = p.LinkDiameter
	if hasLinks(m.element) && m.link == 0 {
		m.link = 8
	}
	if !hasLinks(m.element) {
		m.link = 0
	}
	c.Range("link_diameter", m.link, 0, 16, "mm")

	m.mainD = p.MainBarDiameter
	if m.mainD == 0 {
		m.mainD = 20
		if m.element == ElementSlab || m.element == ElementStair || m.element == ElementWall {
			m.mainD = 12
		}
	}
	c.Range("main_bar_diameter", m.mainD, 6, 40, "mm")

	m.elFactor = p.EffectiveLength
	if m.elFactor == 0 {
		m.elFactor = 0.85
	}
	c.Range("effective_length_factor", m.elFactor, 0.5, 2.5, "")
	if err := c.Err(); err != nil {
		return nil, err
	}

	var err error
	if m.consts, err = t.Code(m.code); err != nil {
		return nil, err
	}
	if m.fcu, err = t.Concrete(validate.Grade(p.ConcreteGrade)); err != nil {
		return nil, err
	}
	steelGrade := validate.Grade(p.SteelGrade)
	steel, err := t.Steel(steelGrade)
	if err != nil {
		return nil, err
	}
	m.fy, m.prefix = steel.Fy, steel.Prefix
	linkGrade := validate.Grade(p.LinkGrade)
	if linkGrade == "" {
		linkGrade = "250"
	}
	links, err := t.Steel(linkGrade)
	if err != nil {
		return nil, err
	}
	m.fyv, m.linkPx = links.Fy, links.Prefix
	if m.minRatio, err = t.MinimumRatio(category(m.element), steelGrade); err != nil {
		return nil, err
	}
	if m.maxRatio, err = t.MaximumRatio(category(m.element)); err != nil {
		return nil, err
	}

	m.cover = p.Cover
	if m.cover == 0 {
		if m.cover, err = t.NominalCover(category(m.element)); err != nil {
			return nil, err
		}
	}
	c.Range("cover", m.cover, 10, 150, "mm")
	c.Less("cover", m.cover, "depth", m.h)
	if err := c.Err(); err != nil {
		return nil, err
	}

	m.d = m.h - m.cover - m.link - m.mainD/2
	m.dc = m.cover + m.link + m.mainD/2
	c.Check(m.d > m.h/2, "depth", m.h, "effective depth must exceed half the overall depth; increase depth or reduce cover")

	m.redistribution = p.Redistribution
	c.Range("redistribution", m.redistribution, 0, m.consts.MaxRedistribution, "%")
	if m.redistribution > 0 && m.support != SupportContinuous {
		c.Fail("redistribution", m.redistribution, "redistribution applies only to continuous members")
	}

	checkAnalysis(c, m, a)
	if err := c.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func checkAnalysis(c *validate.Checker, m *member, a AnalysisResult) {
	n := len(a.Spans)
	switch m.element {
	case ElementFoundation:
	case ElementColumn, ElementWall:
		c.Len("spans", n, 1, "1 (the storey height) for columns and walls")
	default:
		c.Check(n > 0, "spans", n, "at least one span is required")
	}
	for i, s := range a.Spans {
		c.Positive(validate.Index("spans", i, "length"), s.Length)
		c.Range(validate.Index("spans", i, "length"), s.Length, 0, 50, "m")
		m.spans = append(m.spans, s.Length)
	}
	if m.support != SupportContinuous && m.element != ElementFoundation {
		c.Check(n <= 1, "spans", n, fmt.Sprintf("%s members have exactly one span", m.support))
	}

	c.Check(len(a.Moments) > 0, "moments", len(a.Moments), "at least one moment is required")
	for i, v := range a.Moments {
		c.Check(!math.IsNaN(v) && !math.IsInf(v, 0), validate.Index("moments", i, ""), v, "moment must be a finite number")
	}
	for i, v := range a.Shears {
		c.Check(!math.IsNaN(v) && !math.IsInf(v, 0), validate.Index("shears", i, ""), v, "shear must be a finite number")
	}
	m.moments = a.Moments
	m.shears = a.Shears

	switch m.element {
	case ElementColumn, ElementWall:
		c.Check(len(a.AxialLoads) == 1 || len(a.AxialLoads) == len(a.Moments), "axial_loads", len(a.AxialLoads),
			"axial_loads array length must be 1 or equal the moments length")
		for i, v := range a.AxialLoads {
			c.Positive(validate.Index("axial_loads", i, ""), v)
		}
		m.axial = a.AxialLoads
		return
	case ElementFoundation:
		return
	}

	if n == 0 {
		return
	}
	switch m.support {
	case SupportSimple:
		c.Check(len(a.Moments) == 1 || len(a.Moments) == 3, "moments", len(a.Moments),
			"moments array length must equal 1 (mid-span) or 3 (support, span, support) for simply supported members")
		c.Len("shears", len(a.Shears), 2, "2 for simply supported members")
	case SupportCantilever:
		c.Check(len(a.Moments) == 1 || len(a.Moments) == 2, "moments", len(a.Moments),
			"moments array length must equal 1 (root) or 2 (root, tip) for cantilevers")
		c.Check(len(a.Shears) == 1 || len(a.Shears) == 2, "shears", len(a.Shears),
			"shears array length must equal 1 or 2 for cantilevers")
	case SupportContinuous:
		c.Check(len(a.Moments) == n+1 || len(a.Moments) == 2*n+1, "moments", len(a.Moments),
			"moments array length must equal spans+1 for continuous beams (or 2·spans+1 with span moments)")
		c.Check(len(a.Shears) == 2*n || len(a.Shears) == n+1, "shears", len(a.Shears),
			"shears array length must equal 2·spans (faces) or spans+1 (supports)")
	}
}
