package design

import (
	"math"

	"Civcalc/internal/calcerr"
)

const (
	kindSingly = "singly"
	kindDoubly = "doubly"
)

// bend designs a rectangular section for a moment magnitude (kNm) using the
// simplified rectangular stress block. K above kPrime either adds
// compression steel or, when allowDoubly is false, fails as over-reinforced.
func (m *member) bend(field string, moment, kPrime float64, allowDoubly bool) (Flexure, error) {
	c := m.consts
	mu := math.Abs(moment) * 1e6
	bd2 := m.b * m.d * m.d
	k := mu / (m.fcu * bd2)
	fsd := c.SteelFactor * m.fy

	if k <= kPrime {
		z := m.leverArm(k)
		x := (m.d - z) / c.NeutralAxisFactor
		return Singly{
			Kind:             kindSingly,
			K:                k,
			LeverArm:         z,
			NeutralAxisRatio: math.Min(x/m.d, c.MaxNeutralAxisRatio),
			TensionArea:      mu / (fsd * z),
		}, nil
	}
	if !allowDoubly {
		return nil, &calcerr.Error{
			Code:    calcerr.CodeOverReinforced,
			Field:   field,
			Value:   k,
			Message: "K exceeds K' and this element cannot carry compression steel; increase depth or concrete grade",
		}
	}

	z := m.leverArm(kPrime)
	x := (m.d - z) / c.NeutralAxisFactor
	fsc := fsd
	yields := m.dc/x <= 1-fsd/700
	if !yields {
		fsc = 700 * (1 - m.dc/x)
	}
	if fsc <= 0 {
		return nil, &calcerr.Error{
			Code:    calcerr.CodeOverReinforced,
			Field:   field,
			Value:   k,
			Message: "compression steel lies below the neutral axis; increase depth",
		}
	}
	asc := (k - kPrime) * m.fcu * bd2 / (fsc * (m.d - m.dc))
	return Doubly{
		Kind:                 kindDoubly,
		K:                    k,
		KPrime:               kPrime,
		LeverArm:             z,
		NeutralAxisRatio:     math.Min(x/m.d, c.MaxNeutralAxisRatio),
		UnclampedNeutralAxis: unclampedNeutralAxis(k, c.LeverArmDivisor, c.NeutralAxisFactor),
		CompressionStress:    fsc,
		CompressionYields:    yields,
		TensionArea:          kPrime*m.fcu*bd2/(fsd*z) + asc*fsc/fsd,
		CompressionArea:      asc,
	}, nil
}

// leverArm returns z = d(0.5 + √(0.25 − K/0.9)), capped at 0.95d.
func (m *member) leverArm(k float64) float64 {
	c := m.consts
	z := m.d * (0.5 + math.Sqrt(math.Max(0, 0.25-k/c.LeverArmDivisor)))
	return math.Min(z, c.MaxLeverArmRatio*m.d)
}

// unclampedNeutralAxis is x/d for K without any limit. Beyond the balanced
// point the stress block can no longer carry the moment and the ratio is
// reported as the maximum the parabola reaches.
func unclampedNeutralAxis(k, divisor, factor float64) float64 {
	return (0.5 - math.Sqrt(math.Max(0, 0.25-k/divisor))) / factor
}
