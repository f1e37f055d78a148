package saa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

// layout maps the variables of a two-stage model to column indices. First
// stage columns are absent (x < 0) when the decision is fixed.
type layout struct {
	is, as, ls, ns int
	x, y           int
	q, z, w        int
}

func (l *layout) xCol(i, k int) int       { return l.x + i*l.ls + k }
func (l *layout) yCol(a, i int) int       { return l.y + a*l.is + i }
func (l *layout) qCol(s, a, i, j int) int { return l.q + ((s*l.as+a)*l.is+i)*l.is + j }
func (l *layout) zCol(s, a, i int) int    { return l.z + (s*l.as+a)*l.is + i }
func (l *layout) wCol(s, a, j int) int    { return l.w + (s*l.as+a)*l.is + j }

// twoStage describes one model: which scenarios it covers, with what
// probability, and whether the first stage is a variable or a constant.
type twoStage struct {
	name      string
	inst      *Instance
	scenarios []int
	probs     []float64
	fixed     *Decision
	integer   bool
}

// build assembles
//
//	min  Σ CF x + Σ CP y + Σ_s pr_s (Σ CT·H q + Σ CH z + Σ PU w)
//	s.t. Σ_a V y[a,i] - Σ_l U x[i,l] <= 0
//	     z[s,a,i] + Σ_j q[s,a,i,j] - y[a,i] = 0
//	     w[s,a,j] + Σ_i q[s,a,i,j] = D[s,a,j]
//	     Σ_l x[i,l] <= 1
//
// With a fixed decision only the recourse columns remain: y moves to the
// right-hand side and the first-stage cost becomes the objective offset.
func (t *twoStage) build() (*lp.Model, *layout) {
	inst := t.inst
	m := lp.NewModel(t.name)
	lay := &layout{is: inst.IS, as: inst.AS, ls: inst.LS, ns: len(t.scenarios), x: -1, y: -1}

	if t.fixed == nil {
		lay.x = m.NumCols()
		for range inst.IS {
			for l := range inst.LS {
				m.AddCols(1, inst.CF.AtVec(l), 0, 1, lp.Binary)
			}
		}
		maxCap := mat.Max(inst.U)
		lay.y = m.NumCols()
		for a := range inst.AS {
			m.AddCols(inst.IS, inst.CP.AtVec(a), 0, math.Floor(maxCap/inst.V.AtVec(a)), lp.Integer)
		}
	} else {
		first := costsOf(inst, t.fixed)
		m.Offset = first.Fixed + first.Procurement
	}

	recourse := lp.Continuous
	if t.integer {
		recourse = lp.Integer
	}
	inf := math.Inf(1)
	lay.q = m.NumCols()
	for k := range t.scenarios {
		pr := t.probs[k]
		for a := range inst.AS {
			ct := inst.CT.AtVec(a)
			for i := range inst.IS {
				for j := range inst.IS {
					m.AddCols(1, pr*ct*inst.H.At(i, j), 0, inf, recourse)
				}
			}
		}
	}
	lay.z = m.NumCols()
	for k := range t.scenarios {
		for a := range inst.AS {
			m.AddCols(inst.IS, t.probs[k]*inst.CH.AtVec(a), 0, inf, recourse)
		}
	}
	lay.w = m.NumCols()
	for k := range t.scenarios {
		for a := range inst.AS {
			m.AddCols(inst.IS, t.probs[k]*inst.PU.AtVec(a), 0, inf, recourse)
		}
	}

	if t.fixed == nil {
		for i := range inst.IS {
			terms := make([]lp.Term, 0, inst.AS+inst.LS)
			for a := range inst.AS {
				terms = append(terms, lp.Term{Col: lay.yCol(a, i), Val: inst.V.AtVec(a)})
			}
			for l := range inst.LS {
				terms = append(terms, lp.Term{Col: lay.xCol(i, l), Val: -inst.U.AtVec(l)})
			}
			m.AddLessEqual(0, terms...)
		}
	}

	for k := range t.scenarios {
		for a := range inst.AS {
			for i := range inst.IS {
				terms := make([]lp.Term, 0, inst.IS+2)
				terms = append(terms, lp.Term{Col: lay.zCol(k, a, i), Val: 1})
				for j := range inst.IS {
					terms = append(terms, lp.Term{Col: lay.qCol(k, a, i, j), Val: 1})
				}
				if t.fixed == nil {
					terms = append(terms, lp.Term{Col: lay.yCol(a, i), Val: -1})
					m.AddEquality(0, terms...)
				} else {
					m.AddEquality(t.fixed.Y.At(a, i), terms...)
				}
			}
		}
	}

	for k, s := range t.scenarios {
		d := inst.D[s]
		for a := range inst.AS {
			for j := range inst.IS {
				terms := make([]lp.Term, 0, inst.IS+1)
				terms = append(terms, lp.Term{Col: lay.wCol(k, a, j), Val: 1})
				for i := range inst.IS {
					terms = append(terms, lp.Term{Col: lay.qCol(k, a, i, j), Val: 1})
				}
				m.AddEquality(d.At(a, j), terms...)
			}
		}
	}

	if t.fixed == nil {
		for i := range inst.IS {
			terms := make([]lp.Term, inst.LS)
			for l := range inst.LS {
				terms[l] = lp.Term{Col: lay.xCol(i, l), Val: 1}
			}
			m.AddLessEqual(1, terms...)
		}
	}
	return m, lay
}

// decision reads the first stage back from a solution, rounding to the
// nearest integer.
func (t *twoStage) decision(lay *layout, values []float64) *Decision {
	if t.fixed != nil {
		return t.fixed
	}
	d := NewDecision(lay.is, lay.as, lay.ls)
	for i := range lay.is {
		for l := range lay.ls {
			d.X.Set(i, l, math.Round(values[lay.xCol(i, l)]))
		}
		for a := range lay.as {
			d.Y.Set(a, i, math.Round(values[lay.yCol(a, i)]))
		}
	}
	return d
}

// costs breaks a solution down by cost component.
func (t *twoStage) costs(lay *layout, values []float64, d *Decision) Costs {
	inst := t.inst
	c := costsOf(inst, d)
	for k := range t.scenarios {
		pr := t.probs[k]
		for a := range inst.AS {
			for i := range inst.IS {
				for j := range inst.IS {
					c.Transport += pr * inst.CT.AtVec(a) * inst.H.At(i, j) * values[lay.qCol(k, a, i, j)]
				}
				c.Holding += pr * inst.CH.AtVec(a) * values[lay.zCol(k, a, i)]
				c.Shortage += pr * inst.PU.AtVec(a) * values[lay.wCol(k, a, i)]
			}
		}
	}
	return c
}

// costsOf returns the first-stage part of the cost of d.
func costsOf(inst *Instance, d *Decision) Costs {
	var c Costs
	for i := range inst.IS {
		c.Fixed += mat.Dot(d.X.RowView(i), inst.CF)
	}
	for a := range inst.AS {
		c.Procurement += inst.CP.AtVec(a) * mat.Sum(d.Y.RowView(a))
	}
	return c
}

func checkDecision(inst *Instance, d *Decision) error {
	if d == nil || d.X == nil || d.Y == nil {
		return fmt.Errorf("decision is incomplete")
	}
	if r, c := d.X.Dims(); r != inst.IS || c != inst.LS {
		return fmt.Errorf("facility matrix is %d×%d, want %d×%d", r, c, inst.IS, inst.LS)
	}
	if r, c := d.Y.Dims(); r != inst.AS || c != inst.IS {
		return fmt.Errorf("inventory matrix is %d×%d, want %d×%d", r, c, inst.AS, inst.IS)
	}
	return nil
}
