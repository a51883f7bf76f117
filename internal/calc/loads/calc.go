package loads

import (
	"fmt"

	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/validate"
)

// Combination names a BS 8110 ultimate load combination.
type Combination string

const (
	ComboDeadImposed     Combination = "DL+LL"
	ComboDeadWind        Combination = "DL+WL"
	ComboDeadImposedWind Combination = "DL+LL+WL"
)

// Input loads are characteristic: kN for point loads or kN/m for line loads.
// An empty Combination designs for the envelope of all three.
type Input struct {
	Combination Combination `json:"combination,omitempty"`
	Dead        float64     `json:"dead_kn"`
	Imposed     float64     `json:"imposed_kn"`
	Wind        float64     `json:"wind_kn"`
	// DeadBeneficial takes the dead load at 1.0 where it relieves the member.
	DeadBeneficial bool `json:"dead_beneficial,omitempty"`
	// SpanM, when set, treats the design load as a UDL on a simple span and
	// returns the analysis the design engine consumes.
	SpanM float64 `json:"span_m,omitempty"`
}

type Combined struct {
	Combination Combination `json:"combination"`
	DesignLoad  float64     `json:"design_load_kn"`
	Factors     [3]float64  `json:"factors"`
}

type Result struct {
	DesignLoad   float64                `json:"design_load_kn"`
	Combination  Combination            `json:"combination"`
	Combinations []Combined             `json:"combinations"`
	Analysis     *design.AnalysisResult `json:"analysis,omitempty"`
	Notes        string                 `json:"notes"`
}

func Calculate(in Input) (Result, error) {
	c := validate.New()
	c.Positive("dead_kn", in.Dead)
	c.NonNegative("imposed_kn", in.Imposed)
	c.NonNegative("wind_kn", in.Wind)
	c.NonNegative("span_m", in.SpanM)
	combos := []Combination{ComboDeadImposed, ComboDeadWind, ComboDeadImposedWind}
	if in.Combination != "" {
		c.OneOf("combination", string(in.Combination), string(ComboDeadImposed), string(ComboDeadWind), string(ComboDeadImposedWind))
		combos = []Combination{in.Combination}
	}
	if err := c.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, combo := range combos {
		f := factors(combo, in.DeadBeneficial)
		load := in.Dead*f[0] + in.Imposed*f[1] + in.Wind*f[2]
		res.Combinations = append(res.Combinations, Combined{Combination: combo, DesignLoad: load, Factors: f})
		if load > res.DesignLoad {
			res.DesignLoad = load
			res.Combination = combo
		}
	}
	res.Notes = fmt.Sprintf("BS 8110 Table 2.1, %s governs.", res.Combination)

	if in.SpanM > 0 {
		w, l := res.DesignLoad, in.SpanM
		res.Analysis = &design.AnalysisResult{
			Moments: []float64{0, w * l * l / 8, 0},
			Shears:  []float64{w * l / 2, -w * l / 2},
			Spans:   []design.Span{{Length: l, Support: string(design.SupportSimple)}},
		}
		res.Notes += " Simply supported UDL: M = wL²/8, V = wL/2."
	}
	return res, nil
}

// factors returns the partial safety factors for dead, imposed and wind load.
func factors(combo Combination, deadBeneficial bool) [3]float64 {
	switch combo {
	case ComboDeadWind:
		if deadBeneficial {
			return [3]float64{1.0, 0, 1.4}
		}
		return [3]float64{1.4, 0, 1.4}
	case ComboDeadImposedWind:
		return [3]float64{1.2, 1.2, 1.2}
	default:
		if deadBeneficial {
			return [3]float64{1.0, 1.6, 0}
		}
		return [3]float64{1.4, 1.6, 0}
	}
}
