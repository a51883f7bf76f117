// Package autodesign sizes the depth of a flexural member.
package autodesign

import (
	"math"

	"Civcalc/internal/calc/design"
	"Civcalc/internal/calcerr"
)

const (
	step         = 25.0   // mm
	defaultStart = 150.0  // mm
	defaultMax   = 1500.0 // mm
)

type Input struct {
	design.Input
	// MaxDepth bounds the search, 1500 mm by default. Parameters.Depth,
	// when set, is the first depth tried.
	MaxDepth float64 `json:"max_depth_mm,omitempty"`
}

type Result struct {
	Depth  float64       `json:"depth_mm"`
	Trials int           `json:"trials"`
	Design design.Result `json:"design"`
	Notes  string        `json:"notes"`
}

// infeasible reports whether a deeper section could resolve err.
func infeasible(err error) bool {
	switch calcerr.GetCode(err) {
	case calcerr.CodeOverReinforced, calcerr.CodeShearCapacityExceeded, calcerr.CodeUnarrangeable:
		return true
	}
	return false
}

// Size tries depths from the start depth upwards in 25 mm steps and returns
// the first that designs without infeasibility and passes deflection.
// Input errors stop the search at once.
func Size(e *design.Engine, in Input) (Result, error) {
	maxDepth := in.MaxDepth
	if maxDepth == 0 {
		maxDepth = defaultMax
	}
	start := math.Max(in.Parameters.Depth, defaultStart)
	start = math.Ceil(start/step) * step
	if maxDepth < start {
		return Result{}, calcerr.Validation("max_depth_mm", maxDepth, "max_depth_mm must not be less than the start depth")
	}

	var last error
	trials := 0
	for depth := start; depth <= maxDepth; depth += step {
		trials++
		p := in.Parameters
		p.Depth = depth
		res, err := e.Calculate(in.Analysis, p)
		if err != nil {
			if !infeasible(err) {
				return Result{}, err
			}
			last = err
			continue
		}
		if res.Deflection != nil && !res.Deflection.Pass {
			last = nil
			continue
		}
		return Result{
			Depth:  depth,
			Trials: trials,
			Design: res,
			Notes:  "Depth selected as the shallowest 25 mm step that satisfies strength and deflection.",
		}, nil
	}
	if last != nil {
		return Result{}, calcerr.Wrap(calcerr.GetCode(last), last, "no depth up to %g mm carries the loading", maxDepth)
	}
	return Result{}, calcerr.Validation("max_depth_mm", maxDepth, "no depth up to max_depth_mm passes the deflection check")
}
