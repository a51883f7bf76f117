package design

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calcerr"
)

// RedistributionPolicy decides which moment a redistributed section is
// designed for.
type RedistributionPolicy int

const (
	// GovernLarger designs for the larger magnitude of the elastic and the
	// redistributed moment. Moments are never averaged.
	GovernLarger RedistributionPolicy = iota
	// UseRedistributed designs for the redistributed moment alone.
	UseRedistributed
)

func (p RedistributionPolicy) String() string {
	if p == UseRedistributed {
		return "use-redistributed"
	}
	return "govern-larger"
}

// BeamRules designs beams: compression steel is allowed and shear is
// carried by links.
type BeamRules struct {
	Policy RedistributionPolicy
}

// SlabRules designs one-way slabs per metre width. Slabs carry no links or
// compression steel.
type SlabRules struct {
	Policy RedistributionPolicy
}

// StairRules designs a waist slab; its basic span/depth ratio is enhanced.
type StairRules struct {
	Policy RedistributionPolicy
}

// FoundationRules designs a pad or strip base in bending and beam shear.
// Moments are taken at the column face; no deflection check applies.
type FoundationRules struct{}

func (r BeamRules) design(m *member) (Result, error) {
	return m.flexural(flexuralOptions{policy: r.Policy, doubly: true, deflection: true})
}

func (r SlabRules) design(m *member) (Result, error) {
	return m.flexural(flexuralOptions{policy: r.Policy, mesh: true, deflection: true})
}

func (r StairRules) design(m *member) (Result, error) {
	return m.flexural(flexuralOptions{policy: r.Policy, mesh: true, deflection: true})
}

func (FoundationRules) design(m *member) (Result, error) {
	return m.flexural(flexuralOptions{mesh: true})
}

type flexuralOptions struct {
	policy     RedistributionPolicy
	doubly     bool
	mesh       bool
	deflection bool
}

// station is a critical section and the spans it belongs to.
type station struct {
	location string
	spans    []int
}

func (m *member) stations() []station {
	n := len(m.moments)
	out := make([]station, n)
	switch {
	case m.element == ElementFoundation:
		for i := range out {
			out[i] = station{"face", []int{0}}
		}
	case m.support == SupportSimple && n == 1:
		out[0] = station{"span", []int{0}}
	case m.support == SupportSimple:
		out[0] = station{"support", []int{0}}
		out[1] = station{"span", []int{0}}
		out[2] = station{"support", []int{0}}
	case m.support == SupportCantilever:
		out[0] = station{"support", []int{0}}
		if n == 2 {
			out[1] = station{"tip", []int{0}}
		}
	case n == len(m.spans)+1:
		for j := range out {
			out[j] = station{"support", adjacentSpans(j, len(m.spans))}
		}
	default:
		for k := range out {
			if k%2 == 0 {
				out[k] = station{"support", adjacentSpans(k/2, len(m.spans))}
			} else {
				out[k] = station{"span", []int{(k - 1) / 2}}
			}
		}
	}
	return out
}

// faceSpans returns the spans each shear face belongs to.
func (m *member) faceSpans() [][]int {
	n := len(m.spans)
	out := make([][]int, len(m.shears))
	for i := range out {
		switch {
		case m.support != SupportContinuous || m.element == ElementFoundation:
			out[i] = []int{0}
		case len(m.shears) == 2*n:
			out[i] = []int{i / 2}
		default:
			out[i] = adjacentSpans(i, n)
		}
	}
	return out
}

func adjacentSpans(support, spans int) []int {
	var out []int
	if support > 0 {
		out = append(out, support-1)
	}
	if support < spans {
		out = append(out, support)
	}
	return out
}

// redistribute returns the moment each station is designed for. Support
// moments are reduced by β; span moments gain β times the mean magnitude
// of their adjacent support moments.
func (m *member) redistribute(st []station, policy RedistributionPolicy) (redistributed, design []float64) {
	beta := m.redistribution / 100
	redistributed = make([]float64, len(m.moments))
	design = make([]float64, len(m.moments))
	for i, elastic := range m.moments {
		r := elastic
		if beta > 0 {
			switch st[i].location {
			case "support":
				r = elastic * (1 - beta)
			case "span":
				mean := (math.Abs(m.moments[i-1]) + math.Abs(m.moments[i+1])) / 2
				r = elastic + math.Copysign(beta*mean, nonZero(elastic))
			}
		}
		redistributed[i] = r
		design[i] = r
		if policy == GovernLarger && math.Abs(elastic) > math.Abs(r) {
			design[i] = elastic
		}
	}
	return redistributed, design
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func face(moment float64) string {
	if moment < 0 {
		return "top"
	}
	return "bottom"
}

func (m *member) flexural(opt flexuralOptions) (Result, error) {
	st := m.stations()
	redistributed, moments := m.redistribute(st, opt.policy)
	kPrime := m.consts.KPrimeFor(m.redistribution)
	area := m.grossArea()
	minimum := m.minRatio * area
	maximum := m.maxRatio * area

	res := Result{
		Code:           m.code,
		Element:        m.element,
		Support:        m.support,
		Width:          m.b,
		Depth:          m.h,
		EffectiveDepth: m.d,
	}
	governing := -1
	for i, s := range st {
		field := fmt.Sprintf("moments[%d]", i)
		fl, err := m.bend(field, moments[i], kPrime, opt.doubly)
		if err != nil {
			return Result{}, err
		}
		sd := SectionDesign{
			Index:               i,
			Location:            s.location,
			Face:                face(m.moments[i]),
			ElasticMoment:       m.moments[i],
			RedistributedMoment: redistributed[i],
			DesignMoment:        moments[i],
			Flexure:             fl,
			MinimumTension:      minimum,
			MaximumTension:      maximum,
			RequiredTension:     math.Max(fl.Tension(), minimum),
			RequiredCompression: fl.Compression(),
			MinimumGoverns:      fl.Tension() < minimum,
		}
		if total := sd.RequiredTension + sd.RequiredCompression; total > maximum {
			return Result{}, calcerr.OverReinforced(field, total, maximum)
		}
		if err := m.arrangeSection(field, &sd, opt.mesh); err != nil {
			return Result{}, err
		}
		if _, ok := fl.(Doubly); ok {
			res.Flags.DoublyReinforced = true
		}
		if governing < 0 || sd.RequiredTension > res.Sections[governing].RequiredTension {
			governing = i
		}
		res.Sections = append(res.Sections, sd)
	}
	gov := res.Sections[governing]
	res.RequiredSteelArea = gov.RequiredTension
	res.Flags.MinimumReinforcementGoverns = gov.MinimumGoverns

	faces := m.faceSpans()
	for i, force := range m.shears {
		provided := m.providedIn(res.Sections, st, faces[i])
		sd, err := m.shear(i, force, provided)
		if err != nil {
			return Result{}, err
		}
		res.Shear = append(res.Shear, sd)
	}

	res.Flags.DeflectionOK = true
	if opt.deflection {
		sag := m.sagging(res.Sections)
		var compression float64
		if sag.Compression != nil {
			compression = sag.Compression.ProvidedArea
		}
		d := m.deflection(sag, compression)
		res.Deflection = &d
		res.Flags.DeflectionOK = d.Pass
	}
	res.Notes = m.notes(res, opt)
	return res, nil
}

func (m *member) arrangeSection(field string, sd *SectionDesign, mesh bool) error {
	if mesh {
		perMetre := sd.RequiredTension * 1000 / m.b
		ms, err := m.arranger.Spacing(field, perMetre, m.d, m.prefix)
		if err != nil {
			return err
		}
		sd.Mesh = &ms
		sd.ProvidedTension = ms.ProvidedArea * m.b / 1000
		return nil
	}
	sec := arrange.Section{Width: m.b, Cover: m.cover, LinkDiameter: m.link, Prefix: m.prefix}
	t, err := m.arranger.Arrange(field, sd.RequiredTension, sec)
	if err != nil {
		return err
	}
	sd.Tension = &t
	sd.ProvidedTension = t.ProvidedArea
	if sd.RequiredCompression > 0 {
		c, err := m.arranger.Arrange(field, sd.RequiredCompression, sec)
		if err != nil {
			return err
		}
		sd.Compression = &c
	}
	return nil
}

// providedIn returns the largest provided tension steel among the sections
// of the given spans.
func (m *member) providedIn(sections []SectionDesign, st []station, spans []int) float64 {
	var best float64
	for i, s := range st {
		for _, sp := range s.spans {
			for _, want := range spans {
				if sp == want {
					best = math.Max(best, sections[i].ProvidedTension)
				}
			}
		}
	}
	return best
}

// sagging returns the section governing deflection: the span section with
// the largest moment, or the support section for cantilevers. Without span
// sections the section with the largest moment governs.
func (m *member) sagging(sections []SectionDesign) SectionDesign {
	if m.support == SupportCantilever {
		return sections[0]
	}
	var best, peak SectionDesign
	found := false
	for i, s := range sections {
		if i == 0 || math.Abs(s.DesignMoment) > math.Abs(peak.DesignMoment) {
			peak = s
		}
		if s.Location == "span" && (!found || math.Abs(s.DesignMoment) > math.Abs(best.DesignMoment)) {
			best, found = s, true
		}
	}
	if !found {
		return peak
	}
	return best
}

func (m *member) notes(res Result, opt flexuralOptions) string {
	n := fmt.Sprintf("%s %s to %s, fcu %g, fy %g, d = %.0f mm.", m.support, m.element, m.code, m.fcu, m.fy, m.d)
	if m.redistribution > 0 {
		n += fmt.Sprintf(" %g%% redistribution, %s.", m.redistribution, opt.policy)
	}
	if res.Flags.DoublyReinforced {
		n += " Compression steel required."
	}
	if res.Flags.MinimumReinforcementGoverns {
		n += " Minimum reinforcement governs."
	}
	if !res.Flags.DeflectionOK {
		n += " Deflection check fails; increase depth or provide more tension steel."
	}
	return n
}
