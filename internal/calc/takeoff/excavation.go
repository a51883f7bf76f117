package takeoff

import (
	"math"

	"Civcalc/internal/calc/boq"
)

// Excavation is the soil/rock split of one excavation: SoilOnly or
// SoilAndRock.
type Excavation interface {
	// MeanDepth is the mean total depth over the whole plan, m.
	MeanDepth() float64
	// Rock returns the share of the plan length in rock and the mean rock
	// thickness over that share.
	Rock() (share, thickness float64)
}

// SoilOnly is an excavation that stays above the rock.
type SoilOnly struct {
	Depth float64 `json:"depth_m"`
}

// SoilAndRock is an excavation that reaches below RockStart.
type SoilAndRock struct {
	Depth         float64 `json:"depth_m"`
	RockStart     float64 `json:"rock_start_m"`
	RockShare     float64 `json:"rock_share"`
	RockThickness float64 `json:"rock_thickness_m"`
}

func (s SoilOnly) MeanDepth() float64          { return s.Depth }
func (SoilOnly) Rock() (float64, float64)      { return 0, 0 }
func (s SoilAndRock) MeanDepth() float64       { return s.Depth }
func (s SoilAndRock) Rock() (float64, float64) { return s.RockShare, s.RockThickness }

// pit splits a flat-bottomed excavation of the given depth.
func pit(depth float64, p boq.Project) Excavation {
	if !p.Rock || depth <= p.RockStartDepth {
		return SoilOnly{Depth: depth}
	}
	return SoilAndRock{
		Depth:         depth,
		RockStart:     p.RockStartDepth,
		RockShare:     1,
		RockThickness: depth - p.RockStartDepth,
	}
}

// trench splits a trench whose depth varies linearly from d1 to d2 by
// integrating the rock thickness along the run.
func trench(d1, d2 float64, p boq.Project) Excavation {
	mean := (d1 + d2) / 2
	lo, hi := math.Min(d1, d2), math.Max(d1, d2)
	r := p.RockStartDepth
	switch {
	case !p.Rock || hi <= r:
		return SoilOnly{Depth: mean}
	case lo >= r:
		return SoilAndRock{Depth: mean, RockStart: r, RockShare: 1, RockThickness: mean - r}
	default:
		return SoilAndRock{
			Depth:         mean,
			RockStart:     r,
			RockShare:     (hi - r) / (hi - lo),
			RockThickness: (hi - r) / 2,
		}
	}
}

// book records an excavation of plan a × b (m) against the soil and rock
// codes. Rock is booked over a × (b × share) and deducted from the soil.
func (s *sheet) book(soilCode, rockCode, note string, times, a, b float64, ex Excavation) {
	s.add(soilCode, "", note, times, a, b, ex.MeanDepth())
	share, t := ex.Rock()
	if share == 0 {
		return
	}
	s.add(soilCode, "", note+" less rock", -times, a, b*share, t)
	s.add(rockCode, "", note, times, a, b*share, t)
}
