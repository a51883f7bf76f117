package design

import "math"

// deflection checks the longest span against the allowable span/effective
// depth ratio using the steel of the governing sagging section s.
func (m *member) deflection(s SectionDesign, compressionProvided float64) Deflection {
	c := m.consts
	span := 0.0
	for _, l := range m.spans {
		span = math.Max(span, l)
	}

	var basic float64
	switch m.support {
	case SupportCantilever:
		basic = c.SpanDepthCantilever
	case SupportContinuous:
		basic = c.SpanDepthContinuous
	default:
		basic = c.SpanDepthSimple
	}
	if m.element == ElementStair {
		basic *= c.StairSpanDepthFactor
	}
	if span > 10 && m.support != SupportCantilever {
		basic *= 10 / span
	}

	tension := c.ModificationFactorCap
	if s.ProvidedTension > 0 {
		fs := 2.0 / 3.0 * m.fy * s.RequiredTension / s.ProvidedTension
		mbd2 := math.Abs(s.DesignMoment) * 1e6 / (m.b * m.d * m.d)
		tension = math.Min(0.55+(477-fs)/(120*(0.9+mbd2)), c.ModificationFactorCap)
	}
	compression := 1.0
	if compressionProvided > 0 {
		rho := 100 * compressionProvided / (m.b * m.d)
		compression = math.Min(1+rho/(3+rho), 1.5)
	}

	allowable := basic * tension * compression
	ratio := span * 1000 / m.d
	return Deflection{
		SpanDepthRatio:          ratio,
		BasicRatio:              basic,
		TensionModification:     tension,
		CompressionModification: compression,
		AllowableRatio:          allowable,
		Pass:                    ratio <= allowable,
	}
}
