// Package design turns an already-computed analysis into required
// reinforcement, bar arrangements and serviceability checks.
//
// An Engine dispatches each request to the Rules registered for its design
// code and element. Every calculation is a pure function of its input and
// the read-only material table, so one Engine serves concurrent requests.
package design

import (
	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calcerr"
)

// Rules is the design strategy of one element type under one code.
type Rules interface {
	design(m *member) (Result, error)
}

// Input is the JSON form of a design request.
type Input struct {
	Analysis   AnalysisResult `json:"analysis"`
	Parameters Parameters     `json:"parameters"`
}

type Engine struct {
	table    *material.Table
	arranger *arrange.Arranger
	rules    map[string]map[Element]Rules
}

// NewEngine returns an engine with the BS 8110 rules registered.
func NewEngine(t *material.Table, a *arrange.Arranger) *Engine {
	e := &Engine{table: t, arranger: a, rules: map[string]map[Element]Rules{}}
	e.Register(CodeBS8110, ElementBeam, BeamRules{})
	e.Register(CodeBS8110, ElementSlab, SlabRules{})
	e.Register(CodeBS8110, ElementStair, StairRules{})
	e.Register(CodeBS8110, ElementFoundation, FoundationRules{})
	e.Register(CodeBS8110, ElementColumn, ColumnRules{})
	e.Register(CodeBS8110, ElementWall, WallRules{})
	return e
}

// Register sets the rules for an element under a code. It must not be
// called once the engine is serving requests.
func (e *Engine) Register(code string, el Element, r Rules) {
	if e.rules[code] == nil {
		e.rules[code] = map[Element]Rules{}
	}
	e.rules[code][el] = r
}

func (e *Engine) Table() *material.Table { return e.table }

func (e *Engine) Arranger() *arrange.Arranger { return e.arranger }

// Calculate designs one member. A failed request returns no partial result.
func (e *Engine) Calculate(a AnalysisResult, p Parameters) (Result, error) {
	m, err := normalize(e.table, a, p)
	if err != nil {
		return Result{}, err
	}
	r, ok := e.rules[m.code][m.element]
	if !ok {
		return Result{}, calcerr.UnknownGrade("design code "+m.code, string(m.element))
	}
	m.arranger = e.arranger
	return r.design(m)
}

// CalculateInput is Calculate for the JSON request form.
func (e *Engine) CalculateInput(in Input) (Result, error) {
	return e.Calculate(in.Analysis, in.Parameters)
}
