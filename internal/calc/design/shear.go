package design

import (
	"fmt"
	"math"

	"Civcalc/internal/calcerr"
)

const (
	linkLegs       = 2
	minLinkSpacing = 75 // mm
	maxLinkSize    = 12 // mm
)

// shear checks one face carrying force (kN) with provided tension steel
// (mm²) anchored beyond it.
func (m *member) shear(index int, force, provided float64) (ShearDesign, error) {
	field := fmt.Sprintf("shears[%d]", index)
	c := m.consts
	v := math.Abs(force) * 1e3 / (m.b * m.d)
	vc := c.ShearCapacity(m.fcu, provided, m.b, m.d)
	vmax := c.MaxShear(m.fcu)

	sd := ShearDesign{
		Index:     index,
		Force:     force,
		Stress:    v,
		Capacity:  vc,
		MaxStress: vmax,
	}
	if v > vmax {
		return ShearDesign{}, calcerr.ShearCapacityExceeded(field, v, vmax)
	}
	if !hasLinks(m.element) {
		if v > vc {
			return ShearDesign{}, calcerr.ShearCapacityExceeded(field, v, vc)
		}
		sd.Provision = ShearNone
		return sd, nil
	}

	switch {
	case v < vc/2:
		sd.Provision = ShearNominal
		sd.AsvOverSv = c.MinLinkStress * m.b / (c.SteelFactor * m.fyv)
	case v < vc+c.MinLinkStress:
		sd.Provision = ShearMinimum
		sd.AsvOverSv = c.MinLinkStress * m.b / (c.SteelFactor * m.fyv)
	default:
		sd.Provision = ShearDesigned
		sd.AsvOverSv = m.b * (v - vc) / (c.SteelFactor * m.fyv)
	}

	maxSpacing := roundDown25(c.LinkSpacingRatio * m.d)
	for _, bar := range m.table.Bars() {
		if bar.Diameter < m.link || bar.Diameter > maxLinkSize {
			continue
		}
		s := math.Min(roundDown25(linkLegs*bar.Area/sd.AsvOverSv), maxSpacing)
		if s < minLinkSpacing {
			continue
		}
		sd.LinkDiameter = bar.Diameter
		sd.Legs = linkLegs
		sd.Spacing = s
		sd.Designation = fmt.Sprintf("%s%g-%g", m.linkPx, bar.Diameter, s)
		return sd, nil
	}
	return ShearDesign{}, calcerr.Unarrangeable(field, sd.AsvOverSv*1000, m.b)
}

func roundDown25(v float64) float64 {
	return math.Floor(v/25) * 25
}

// compressionShear checks shear on a column or wall carrying axial load
// n (kN) and moment moment (kN·m), with tension steel provided (mm²) in the
// far face. The axial load raises vc to vc + 0.6·N·V·h/(Ac·M), with
// V·h/M not above 1; when M/N is under 0.6h only the vmax ceiling applies.
func (m *member) compressionShear(index int, force, n, moment, provided float64) (ShearDesign, error) {
	field := fmt.Sprintf("shears[%d]", index)
	c := m.consts
	v := math.Abs(force) * 1e3 / (m.b * m.d)
	vmax := c.MaxShear(m.fcu)
	if v > vmax {
		return ShearDesign{}, calcerr.ShearCapacityExceeded(field, v, vmax)
	}

	nn := n * 1e3
	mm := math.Abs(moment) * 1e6
	vc := c.ShearCapacity(m.fcu, provided, m.b, m.d)
	sd := ShearDesign{
		Index:     index,
		Force:     force,
		Stress:    v,
		Capacity:  vc,
		MaxStress: vmax,
		Provision: ShearNone,
	}
	if mm < 0.6*m.h*nn {
		return sd, nil
	}
	vhm := math.Min(math.Abs(force)*1e3*m.h/mm, 1)
	sd.Capacity = vc + 0.6*nn/m.grossArea()*vhm
	if v > sd.Capacity {
		return ShearDesign{}, calcerr.ShearCapacityExceeded(field, v, sd.Capacity)
	}
	return sd, nil
}
