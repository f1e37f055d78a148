package lp

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
)

type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("VarKind(%d)", int(k))
}

// Nonzero is one entry of the sparse constraint matrix.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// Term is a coefficient on a column, used while a row is being assembled.
type Term struct {
	Col int
	Val float64
}

// Model is a minimization MIP in column/row bound form:
//
//	min  ColCosts·x + Offset
//	s.t. RowLower <= A x <= RowUpper
//	     ColLower <= x   <= ColUpper
//
// Backends translate it into their native representation.
type Model struct {
	Name        string
	ColCosts    []float64
	Offset      float64
	ColLower    []float64
	ColUpper    []float64
	Kinds       []VarKind
	RowLower    []float64
	RowUpper    []float64
	ConstMatrix []Nonzero
}

func NewModel(name string) *Model {
	return &Model{Name: name}
}

func (m *Model) NumCols() int {
	return len(m.ColCosts)
}

func (m *Model) NumRows() int {
	return len(m.RowLower)
}

// AddCols appends n columns sharing the same cost, bounds and kind and returns
// the index of the first one.
func (m *Model) AddCols(n int, cost, lower, upper float64, kind VarKind) int {
	first := len(m.ColCosts)
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	for range n {
		m.ColCosts = append(m.ColCosts, cost)
		m.ColLower = append(m.ColLower, lower)
		m.ColUpper = append(m.ColUpper, upper)
		m.Kinds = append(m.Kinds, kind)
	}
	return first
}

// AddRow appends lower <= Σ terms <= upper and returns its index. Terms on the
// same column are summed.
func (m *Model) AddRow(lower, upper float64, terms ...Term) int {
	row := len(m.RowLower)
	m.RowLower = append(m.RowLower, lower)
	m.RowUpper = append(m.RowUpper, upper)
	for _, t := range terms {
		if t.Val == 0 {
			continue
		}
		m.ConstMatrix = append(m.ConstMatrix, Nonzero{Row: row, Col: t.Col, Val: t.Val})
	}
	return row
}

func (m *Model) AddEquality(rhs float64, terms ...Term) int {
	return m.AddRow(rhs, rhs, terms...)
}

func (m *Model) AddLessEqual(rhs float64, terms ...Term) int {
	return m.AddRow(math.Inf(-1), rhs, terms...)
}

// Rows returns the constraint matrix grouped by row, with duplicate columns
// merged.
func (m *Model) Rows() [][]Term {
	rows := make([][]Term, m.NumRows())
	for _, nz := range m.ConstMatrix {
		rows[nz.Row] = append(rows[nz.Row], Term{Col: nz.Col, Val: nz.Val})
	}
	for r, terms := range rows {
		slices.SortFunc(terms, func(a, b Term) bool { return a.Col < b.Col })
		merged := terms[:0]
		for _, t := range terms {
			if n := len(merged); n > 0 && merged[n-1].Col == t.Col {
				merged[n-1].Val += t.Val
				continue
			}
			merged = append(merged, t)
		}
		nonzero := merged[:0]
		for _, t := range merged {
			if t.Val != 0 {
				nonzero = append(nonzero, t)
			}
		}
		rows[r] = nonzero
	}
	return rows
}

func (m *Model) IsMIP() bool {
	for _, k := range m.Kinds {
		if k != Continuous {
			return true
		}
	}
	return false
}

// Validate checks dimensional consistency and bound ordering.
func (m *Model) Validate() error {
	n := len(m.ColCosts)
	if len(m.ColLower) != n || len(m.ColUpper) != n || len(m.Kinds) != n {
		return fmt.Errorf("model %s: column slices have inconsistent lengths", m.Name)
	}
	if len(m.RowUpper) != len(m.RowLower) {
		return fmt.Errorf("model %s: row slices have inconsistent lengths", m.Name)
	}
	for j := range n {
		if m.ColLower[j] > m.ColUpper[j] {
			return fmt.Errorf("model %s: column %d has lower bound %g above upper bound %g", m.Name, j, m.ColLower[j], m.ColUpper[j])
		}
	}
	for i := range m.RowLower {
		if m.RowLower[i] > m.RowUpper[i] {
			return fmt.Errorf("model %s: row %d has lower bound %g above upper bound %g", m.Name, i, m.RowLower[i], m.RowUpper[i])
		}
	}
	for _, nz := range m.ConstMatrix {
		if nz.Row < 0 || nz.Row >= len(m.RowLower) || nz.Col < 0 || nz.Col >= n {
			return fmt.Errorf("model %s: nonzero (%d, %d) out of range", m.Name, nz.Row, nz.Col)
		}
	}
	return nil
}

func (m *Model) Clone() *Model {
	return &Model{
		Name:        m.Name,
		ColCosts:    slices.Clone(m.ColCosts),
		Offset:      m.Offset,
		ColLower:    slices.Clone(m.ColLower),
		ColUpper:    slices.Clone(m.ColUpper),
		Kinds:       slices.Clone(m.Kinds),
		RowLower:    slices.Clone(m.RowLower),
		RowUpper:    slices.Clone(m.RowUpper),
		ConstMatrix: slices.Clone(m.ConstMatrix),
	}
}

// Objective evaluates the objective, offset included, at x.
func (m *Model) Objective(x []float64) float64 {
	obj := m.Offset
	for j, c := range m.ColCosts {
		obj += c * x[j]
	}
	return obj
}

func (m *Model) String() string {
	s := new(strings.Builder)
	counts := make(map[VarKind]int)
	for _, k := range m.Kinds {
		counts[k]++
	}
	fmt.Fprintf(s, "Model %s: %d columns (%d binary, %d integer, %d continuous), %d rows, %d nonzeros",
		m.Name, m.NumCols(), counts[Binary], counts[Integer], counts[Continuous], m.NumRows(), len(m.ConstMatrix))
	return s.String()
}
