package arrange

import (
	"fmt"
	"math"

	"Civcalc/internal/calc/material"
	"Civcalc/internal/calcerr"
)

// Config bounds the bar arrangements the Arranger may propose.
type Config struct {
	MinBars       int     `json:"min_bars"`
	MaxBarsPerRow int     `json:"max_bars_per_row"`
	MaxRows       int     `json:"max_rows"`
	MinDiameter   float64 `json:"min_diameter_mm"`
	MaxDiameter   float64 `json:"max_diameter_mm"`
	SlabDiameter  float64 `json:"slab_min_diameter_mm"`
	MaxSpacing    float64 `json:"max_spacing_mm"`
	AggregateSize float64 `json:"aggregate_size_mm"`
}

func DefaultConfig() Config {
	return Config{
		MinBars:       2,
		MaxBarsPerRow: 5,
		MaxRows:       3,
		MinDiameter:   12,
		MaxDiameter:   32,
		SlabDiameter:  10,
		MaxSpacing:    300,
		AggregateSize: 20,
	}
}

// Section is the part of a member the bars must fit into.
type Section struct {
	Width        float64 // mm
	Cover        float64 // nominal cover to the links, mm
	LinkDiameter float64 // mm
	Prefix       string  // bar-mark prefix of the steel grade
}

// Arrangement is a realizable group of equal bars.
type Arrangement struct {
	Diameter     float64 `json:"diameter_mm"`
	Count        int     `json:"count"`
	Rows         int     `json:"rows"`
	PerRow       int     `json:"per_row"`
	BarArea      float64 `json:"bar_area_mm2"`
	ProvidedArea float64 `json:"provided_area_mm2"`
	ClearSpacing float64 `json:"clear_spacing_mm"`
	Designation  string  `json:"designation"`
}

// Mesh is a bar arrangement per metre width for slabs, walls and bases.
type Mesh struct {
	Diameter     float64 `json:"diameter_mm"`
	Spacing      float64 `json:"spacing_mm"`
	BarsPerMetre float64 `json:"bars_per_metre"`
	ProvidedArea float64 `json:"provided_area_mm2_per_m"`
	Designation  string  `json:"designation"`
}

type Arranger struct {
	cfg  Config
	bars []material.Bar
}

func New(t *material.Table, cfg Config) *Arranger {
	var bars []material.Bar
	for _, b := range t.Bars() {
		if b.Diameter <= cfg.MaxDiameter {
			bars = append(bars, b)
		}
	}
	return &Arranger{cfg: cfg, bars: bars}
}

func (a *Arranger) Config() Config { return a.cfg }

func (a *Arranger) minClear(d float64) float64 {
	return math.Max(d, a.cfg.AggregateSize+5)
}

// Arrange converts a required steel area into bars. Fewer rows are preferred:
// for each row limit from 1 to MaxRows, diameters are tried in ascending
// order from MinDiameter, and a diameter is rejected (the next larger one is
// tried) when it needs more rows or when a full row violates the minimum
// clear spacing.
func (a *Arranger) Arrange(field string, required float64, s Section) (Arrangement, error) {
	if required <= 0 || math.IsNaN(required) {
		return Arrangement{}, calcerr.Validation(field, required, "required steel area must be > 0")
	}
	available := s.Width - 2*s.Cover - 2*s.LinkDiameter

	for rowLimit := 1; rowLimit <= a.cfg.MaxRows; rowLimit++ {
		for _, bar := range a.bars {
			if bar.Diameter < a.cfg.MinDiameter {
				continue
			}
			count := max(a.cfg.MinBars, int(math.Ceil(required/bar.Area)))
			rows := (count + a.cfg.MaxBarsPerRow - 1) / a.cfg.MaxBarsPerRow
			if rows > rowLimit {
				continue
			}
			perRow := min(count, a.cfg.MaxBarsPerRow)
			clear := clearSpacing(available, bar.Diameter, perRow)
			if clear < a.minClear(bar.Diameter) {
				continue
			}
			return Arrangement{
				Diameter:     bar.Diameter,
				Count:        count,
				Rows:         rows,
				PerRow:       perRow,
				BarArea:      bar.Area,
				ProvidedArea: float64(count) * bar.Area,
				ClearSpacing: clear,
				Designation:  fmt.Sprintf("%d%s%g", count, s.Prefix, bar.Diameter),
			}, nil
		}
	}
	return Arrangement{}, calcerr.Unarrangeable(field, required, s.Width)
}

func clearSpacing(available, d float64, perRow int) float64 {
	if perRow <= 1 {
		return available - d
	}
	return (available - float64(perRow)*d) / float64(perRow-1)
}

// Spacing converts a required area per metre width into a bar mesh.
// Spacings are rounded down to 25 mm and capped at min(3d, MaxSpacing).
func (a *Arranger) Spacing(field string, required, effectiveDepth float64, prefix string) (Mesh, error) {
	if required <= 0 || math.IsNaN(required) {
		return Mesh{}, calcerr.Validation(field, required, "required steel area must be > 0")
	}
	maxSpacing := roundDown25(math.Min(3*effectiveDepth, a.cfg.MaxSpacing))

	for _, bar := range a.bars {
		if bar.Diameter < a.cfg.SlabDiameter {
			continue
		}
		s := math.Min(roundDown25(1000*bar.Area/required), maxSpacing)
		if s-bar.Diameter < a.minClear(bar.Diameter) {
			continue
		}
		return Mesh{
			Diameter:     bar.Diameter,
			Spacing:      s,
			BarsPerMetre: 1000 / s,
			ProvidedArea: 1000 * bar.Area / s,
			Designation:  fmt.Sprintf("%s%g-%g", prefix, bar.Diameter, s),
		}, nil
	}
	return Mesh{}, calcerr.Unarrangeable(field, required, 1000)
}

func roundDown25(v float64) float64 {
	return math.Floor(v/25) * 25
}
