package classify

import (
	"fmt"
	"strings"
)

// Param is one named hyperparameter value. Values are float64, string, or
// nil for "none".
type Param struct {
	Name  string
	Value any
}

// Params is an ordered parameter assignment.
type Params []Param

// Get returns the value of name and whether it was present.
func (p Params) Get(name string) (any, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return nil, false
}

func (p Params) String() string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = kv.Name + ": " + FormatValue(kv.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FormatValue renders a parameter value for reports.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case float64:
		return fmt.Sprintf("%g", t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Axis is one searched hyperparameter and its candidate values.
type Axis struct {
	Name   string
	Values []any
}

// Grid is the Cartesian product of its axes. Candidates are enumerated with
// the last axis varying fastest.
type Grid []Axis

// Size returns the number of candidates.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, a := range g {
		n *= len(a.Values)
	}
	return n
}

// Candidate is one point of a grid with its position in the enumeration.
type Candidate struct {
	Index  int
	Params Params
}

// Candidates enumerates the grid in its fixed order.
func (g Grid) Candidates() []Candidate {
	total := g.Size()
	out := make([]Candidate, total)
	for idx := 0; idx < total; idx++ {
		params := make(Params, len(g))
		rem := idx
		for a := len(g) - 1; a >= 0; a-- {
			n := len(g[a].Values)
			params[a] = Param{Name: g[a].Name, Value: g[a].Values[rem%n]}
			rem /= n
		}
		out[idx] = Candidate{Index: idx, Params: params}
	}
	return out
}

// SVMGrid is the kernel classifier search space.
func SVMGrid() Grid {
	return Grid{
		{Name: "C", Values: []any{0.1, 1.0, 10.0, 100.0}},
		{Name: "gamma", Values: []any{GammaScale, GammaAuto, 0.1, 0.01}},
		{Name: "kernel", Values: []any{KernelLinear, KernelRBF}},
	}
}

// LDAGrid is the discriminant classifier search space.
func LDAGrid() Grid {
	return Grid{
		{Name: "shrinkage", Values: []any{nil, ShrinkageAuto, 0.1, 0.5, 0.9}},
		{Name: "solver", Values: []any{SolverSVD, SolverLSQR, SolverEigen}},
	}
}

func floatParam(p Params, name string) (float64, error) {
	v, ok := p.Get(name)
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("parameter %q: want number, got %v", name, v)
	}
	return f, nil
}

func stringParam(p Params, name string) (string, error) {
	v, ok := p.Get(name)
	if !ok {
		return "", fmt.Errorf("missing parameter %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: want string, got %v", name, v)
	}
	return s, nil
}
