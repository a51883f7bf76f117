// Package batch designs several members in one all-or-nothing request.
package batch

import (
	"errors"

	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/validate"
	"Civcalc/internal/calcerr"
)

// MaxItems bounds the size of one batch.
const MaxItems = 200

type Input struct {
	Items []design.Input `json:"items"`
}

type Result struct {
	Results []design.Result `json:"results"`
}

// Calculate designs every item in order. The first failure fails the
// batch, with the error field prefixed by the item index.
func Calculate(e *design.Engine, in Input) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, calcerr.Validation("items", 0, "items must not be empty")
	}
	if len(in.Items) > MaxItems {
		return Result{}, calcerr.Validation("items", len(in.Items), "items must not exceed 200 entries")
	}
	out := Result{Results: make([]design.Result, 0, len(in.Items))}
	for i, item := range in.Items {
		res, err := e.CalculateInput(item)
		if err != nil {
			var ce *calcerr.Error
			if errors.As(err, &ce) {
				ce.Field = validate.Index("items", i, ce.Field)
			}
			return Result{}, err
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}
