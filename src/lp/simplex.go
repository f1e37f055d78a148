package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	convex "gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	eps           = 1e-8
	integralTol   = 1e-6
	simplexTol    = 1e-10
	infiniteBound = 1e20
)

func init() {
	Register("simplex", func(opts Options) Oracle { return NewSimplexOracle(opts) })
}

// SimplexOracle is a dependency-free oracle: LP relaxations are solved with
// gonum's dense simplex and integrality is recovered by depth-first branch and
// bound. It is meant for small models and tests.
type SimplexOracle struct {
	opts Options
}

func NewSimplexOracle(opts Options) *SimplexOracle {
	return &SimplexOracle{opts: opts}
}

func (o *SimplexOracle) Name() string {
	return "simplex"
}

func (o *SimplexOracle) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return RunBlocking(ctx, func() (*Solution, error) {
		if !m.IsMIP() {
			relax, err := solveRelaxation(m, m.ColLower, m.ColUpper)
			if err != nil {
				return nil, err
			}
			return relax.solution(), nil
		}
		return o.branchAndBound(ctx, m)
	})
}

func isInf(v float64) bool {
	return math.IsInf(v, 0) || math.Abs(v) >= infiniteBound
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

type relaxation struct {
	status Status
	values []float64
	obj    float64
}

func (r *relaxation) solution() *Solution {
	return &Solution{Status: r.status, Values: r.values, Objective: r.obj}
}

// standardForm is min cᵀx' s.t. A x' = b, x' >= 0 where x = lower + x' on the
// non-fixed model columns, followed by slack columns.
type standardForm struct {
	c      []float64
	a      *mat.Dense
	b      []float64
	column []int
}

type stdRow struct {
	terms []Term
	slack float64
	rhs   float64
}

func toStandardForm(m *Model, lower, upper []float64) (*standardForm, error) {
	n := m.NumCols()
	rows := m.Rows()
	pinned := make([]bool, n)
	for {
		sf, empty, err := buildStandardForm(m, rows, lower, upper, pinned)
		if err != nil || len(empty) == 0 {
			return sf, err
		}
		// A column left without constraints sits at its lower bound when its
		// cost is non-negative and is unbounded otherwise.
		for _, j := range empty {
			if m.ColCosts[j] < 0 {
				return nil, errUnboundedColumn
			}
			pinned[j] = true
		}
	}
}

func buildStandardForm(m *Model, rows [][]Term, lower, upper []float64, pinned []bool) (*standardForm, []int, error) {
	n := m.NumCols()
	sf := &standardForm{column: make([]int, n)}
	free := 0
	for j := range n {
		if isInf(lower[j]) {
			return nil, nil, fmt.Errorf("column %d has no finite lower bound", j)
		}
		if pinned[j] || almostEqual(lower[j], upper[j]) {
			sf.column[j] = -1
			continue
		}
		sf.column[j] = free
		free++
	}

	var std []stdRow
	for r, terms := range rows {
		shift := 0.0
		var kept []Term
		for _, t := range terms {
			shift += t.Val * lower[t.Col]
			if sf.column[t.Col] >= 0 {
				kept = append(kept, Term{Col: sf.column[t.Col], Val: t.Val})
			}
		}
		lo, up := m.RowLower[r], m.RowUpper[r]
		if len(kept) == 0 {
			if (!isInf(lo) && shift < lo-eps) || (!isInf(up) && shift > up+eps) {
				return nil, nil, errInfeasibleRow
			}
			continue
		}
		switch {
		case isInf(lo) && isInf(up):
		case almostEqual(lo, up):
			std = append(std, stdRow{terms: kept, rhs: up - shift})
		case isInf(lo):
			std = append(std, stdRow{terms: kept, slack: 1, rhs: up - shift})
		case isInf(up):
			std = append(std, stdRow{terms: kept, slack: -1, rhs: lo - shift})
		default:
			std = append(std,
				stdRow{terms: kept, slack: 1, rhs: up - shift},
				stdRow{terms: kept, slack: -1, rhs: lo - shift})
		}
	}
	for j := range n {
		if sf.column[j] >= 0 && !isInf(upper[j]) {
			std = append(std, stdRow{terms: []Term{{Col: sf.column[j], Val: 1}}, slack: 1, rhs: upper[j] - lower[j]})
		}
	}

	touched := make([]bool, free)
	slacks := 0
	for _, row := range std {
		for _, t := range row.terms {
			touched[t.Col] = true
		}
		if row.slack != 0 {
			slacks++
		}
	}
	var empty []int
	for j := range n {
		if k := sf.column[j]; k >= 0 && !touched[k] {
			empty = append(empty, j)
		}
	}
	if len(empty) > 0 {
		return nil, empty, nil
	}

	cols := free + slacks
	if len(std) > cols {
		return nil, nil, fmt.Errorf("standard form has more rows (%d) than columns (%d)", len(std), cols)
	}
	sf.c = make([]float64, cols)
	for j := range n {
		if k := sf.column[j]; k >= 0 {
			sf.c[k] = m.ColCosts[j]
		}
	}
	if len(std) == 0 {
		return sf, nil, nil
	}
	sf.a = mat.NewDense(len(std), cols, nil)
	sf.b = make([]float64, len(std))
	next := free
	for i, row := range std {
		for _, t := range row.terms {
			sf.a.Set(i, t.Col, sf.a.At(i, t.Col)+t.Val)
		}
		if row.slack != 0 {
			sf.a.Set(i, next, row.slack)
			next++
		}
		sf.b[i] = row.rhs
	}
	return sf, nil, nil
}

var (
	errInfeasibleRow   = errors.New("row infeasible at fixed bounds")
	errUnboundedColumn = errors.New("unconstrained column with negative cost")
)

// solveRelaxation solves the continuous relaxation of m within the given
// column bounds.
func solveRelaxation(m *Model, lower, upper []float64) (*relaxation, error) {
	values := make([]float64, m.NumCols())
	copy(values, lower)

	sf, err := toStandardForm(m, lower, upper)
	switch {
	case errors.Is(err, errInfeasibleRow):
		return &relaxation{status: StatusInfeasible}, nil
	case errors.Is(err, errUnboundedColumn):
		return &relaxation{status: StatusUnbounded}, nil
	case err != nil:
		return nil, err
	}

	if sf.a != nil {
		_, x, err := convex.Simplex(sf.c, sf.a, sf.b, simplexTol, nil)
		switch {
		case errors.Is(err, convex.ErrInfeasible):
			return &relaxation{status: StatusInfeasible}, nil
		case errors.Is(err, convex.ErrUnbounded):
			return &relaxation{status: StatusUnbounded}, nil
		case err != nil:
			return nil, fmt.Errorf("simplex: %w", err)
		}
		for j, k := range sf.column {
			if k >= 0 {
				values[j] += x[k]
			}
		}
	}
	return &relaxation{status: StatusOptimal, values: values, obj: m.Objective(values)}, nil
}
