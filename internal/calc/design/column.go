package design

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calcerr"
)

// shortColumnLimit is the largest le/h of a short braced member.
const shortColumnLimit = 15

// ColumnRules designs short braced rectangular columns with bars in two
// opposite faces and links.
type ColumnRules struct{}

// WallRules designs a reinforced wall per metre length with a mesh in each face.
type WallRules struct{}

func (ColumnRules) design(m *member) (Result, error) { return m.compression(false) }

func (WallRules) design(m *member) (Result, error) { return m.compression(true) }

func (m *member) compression(wall bool) (Result, error) {
	c := m.consts
	thickness := math.Min(m.b, m.h)
	le := m.elFactor * m.spans[0] * 1000
	slenderness := le / thickness
	if slenderness > shortColumnLimit {
		return Result{}, calcerr.Validation("spans[0].length_m", m.spans[0],
			fmt.Sprintf("le/h = %.1f exceeds %d; only short braced members are designed", slenderness, shortColumnLimit))
	}

	area := m.grossArea()
	minimum := m.minRatio * area
	maximum := m.maxRatio * area
	emin := math.Min(c.NominalEccentricityRatio*m.h, 20)

	cd := ColumnDesign{Slenderness: slenderness}
	for i, moment := range m.moments {
		n := m.axial[0]
		if len(m.axial) > 1 {
			n = m.axial[i]
		}
		nn := n * 1e3
		mm := math.Abs(moment) * 1e6
		cs := ColumnSection{
			Index:        i,
			Axial:        n,
			Moment:       moment,
			Eccentricity: mm / nn,
			Minimum:      minimum,
			Maximum:      maximum,
		}
		var asc float64
		if cs.Eccentricity <= emin {
			cs.Mode = "axial"
			asc = (nn - c.ColumnConcreteFactor*m.fcu*area) / (c.ColumnSteelFactor*m.fy - c.ColumnConcreteFactor*m.fcu)
		} else {
			cs.Mode = "combined"
			asc = (nn - c.ColumnMomentConcrete*m.fcu*area) / (c.ColumnMomentSteel*m.fy - c.ColumnMomentConcrete*m.fcu)
			excess := mm - nn*emin
			asc = math.Max(asc, 0) + 2*excess/(c.SteelFactor*m.fy*(m.d-m.dc))
		}
		cs.Required = math.Max(asc, minimum)
		cs.MinimumGoverns = asc < minimum
		if cs.Required > maximum {
			return Result{}, calcerr.OverReinforced(fmt.Sprintf("axial_loads[%d]", i), cs.Required, maximum)
		}
		cd.Sections = append(cd.Sections, cs)
		cd.Required = math.Max(cd.Required, cs.Required)
	}

	governs := false
	for _, cs := range cd.Sections {
		if cs.Required == cd.Required {
			governs = cs.MinimumGoverns
			break
		}
	}

	if wall {
		perFace := cd.Required / 2 * 1000 / m.b
		ms, err := m.arranger.Spacing("column.mesh", perFace, m.d, m.prefix)
		if err != nil {
			return Result{}, err
		}
		cd.Mesh = &ms
		cd.Provided = 2 * ms.ProvidedArea * m.b / 1000
		cd.Designation = ms.Designation + " EF"
	} else {
		sec := arrange.Section{Width: m.b, Cover: m.cover, LinkDiameter: m.link, Prefix: m.prefix}
		bars, err := m.arranger.Arrange("column.bars", cd.Required/2, sec)
		if err != nil {
			return Result{}, err
		}
		cd.Bars = &bars
		cd.TotalBars = 2 * bars.Count
		cd.Provided = 2 * bars.ProvidedArea
		cd.LinkDiameter = m.columnLink(bars.Diameter)
		cd.LinkSpacing = roundDown25(math.Min(12*bars.Diameter, thickness))
		cd.Designation = fmt.Sprintf("%d%s%g, links %s%g-%g",
			cd.TotalBars, m.prefix, bars.Diameter, m.linkPx, cd.LinkDiameter, cd.LinkSpacing)
	}

	nmin, mmax := m.axial[0], 0.0
	for _, n := range m.axial {
		nmin = math.Min(nmin, n)
	}
	for _, moment := range m.moments {
		mmax = math.Max(mmax, math.Abs(moment))
	}
	var shears []ShearDesign
	for i, force := range m.shears {
		sd, err := m.compressionShear(i, force, nmin, mmax, cd.Provided/2)
		if err != nil {
			return Result{}, err
		}
		shears = append(shears, sd)
	}

	res := Result{
		Code:              m.code,
		Element:           m.element,
		Support:           m.support,
		Width:             m.b,
		Depth:             m.h,
		EffectiveDepth:    m.d,
		RequiredSteelArea: cd.Required,
		Column:            &cd,
		Shear:             shears,
		Flags: Flags{
			MinimumReinforcementGoverns: governs,
			DeflectionOK:                true,
		},
	}
	res.Notes = fmt.Sprintf("Short braced %s, le/h = %.1f, %s.", m.element, slenderness, cd.Designation)
	if governs {
		res.Notes += " Minimum reinforcement governs."
	}
	return res, nil
}

// columnLink returns the smallest standard link of at least the requested
// diameter and a quarter of the main bar.
func (m *member) columnLink(main float64) float64 {
	want := math.Max(m.link, math.Max(6, main/4))
	for _, b := range m.table.Bars() {
		if b.Diameter >= want {
			return b.Diameter
		}
	}
	return want
}
