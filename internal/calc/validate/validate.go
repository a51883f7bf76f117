// Package validate holds the range-check primitives every engine request
// passes through before a formula runs.
//
// A Checker keeps only the first violation, in call order, so the same bad
// request always reports the same field. Callers must not build a result
// when Err is non-nil.
package validate

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"Civcalc/internal/calcerr"
)

type Checker struct {
	code calcerr.Code
	err  *calcerr.Error
}

// New returns a Checker reporting INVALID_INPUT.
func New() *Checker {
	return &Checker{code: calcerr.CodeInvalidInput}
}

// NewGeometry returns a Checker reporting INVALID_GEOMETRY.
func NewGeometry() *Checker {
	return &Checker{code: calcerr.CodeInvalidGeometry}
}

// Fail records a violation unless one is already recorded.
func (c *Checker) Fail(field string, value any, constraint string) {
	if c.err != nil {
		return
	}
	c.err = &calcerr.Error{Code: c.code, Field: field, Value: value, Message: constraint}
}

// Check records constraint against field when ok is false.
func (c *Checker) Check(ok bool, field string, value any, constraint string) {
	if !ok {
		c.Fail(field, value, constraint)
	}
}

func (c *Checker) finite(field string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.Fail(field, v, field+" must be a finite number")
		return false
	}
	return true
}

// Positive requires v > 0.
func (c *Checker) Positive(field string, v float64) {
	if c.finite(field, v) && v <= 0 {
		c.Fail(field, v, field+" must be > 0")
	}
}

// NonNegative requires v >= 0.
func (c *Checker) NonNegative(field string, v float64) {
	if c.finite(field, v) && v < 0 {
		c.Fail(field, v, field+" must be >= 0")
	}
}

// Range requires lo <= v <= hi. The unit is named in the message so values
// supplied in the wrong unit are easy to spot.
func (c *Checker) Range(field string, v, lo, hi float64, unit string) {
	if c.finite(field, v) && (v < lo || v > hi) {
		c.Fail(field, v, fmt.Sprintf("%s must be between %g and %g %s", field, lo, hi, unit))
	}
}

// Less requires v < limit, naming the limiting field.
func (c *Checker) Less(field string, v float64, limitField string, limit float64) {
	if c.finite(field, v) && v >= limit {
		c.Fail(field, v, fmt.Sprintf("%s must be less than %s", field, limitField))
	}
}

// Len requires a slice length of exactly want.
func (c *Checker) Len(field string, got, want int, rule string) {
	if got != want {
		c.Fail(field, got, fmt.Sprintf("%s array length must equal %s", field, rule))
	}
}

// OneOf requires v to be one of allowed.
func (c *Checker) OneOf(field, v string, allowed ...string) {
	if !slices.Contains(allowed, v) {
		c.Fail(field, v, fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", ")))
	}
}

// Err returns the first recorded violation, or nil.
func (c *Checker) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Tag normalizes a free-text tag: trimmed and lower-cased.
func Tag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Grade normalizes a grade identifier: trimmed and upper-cased ("c30" → "C30").
func Grade(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Index formats an indexed field name, e.g. Index("spans", 2, "length") → "spans[2].length".
func Index(field string, i int, sub string) string {
	if sub == "" {
		return fmt.Sprintf("%s[%d]", field, i)
	}
	return fmt.Sprintf("%s[%d].%s", field, i, sub)
}
