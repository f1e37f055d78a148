package lp

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

type bbNode struct {
	lower     []float64
	upper     []float64
	dualBound float64
	depth     int
}

// mostFractional returns the integer column whose relaxed value is farthest
// from integrality, or -1 when the point is integral.
func mostFractional(m *Model, values []float64) int {
	best, bestFrac := -1, integralTol
	for j, k := range m.Kinds {
		if k == Continuous {
			continue
		}
		frac := math.Abs(values[j] - math.Round(values[j]))
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}
	return best
}

func (o *SimplexOracle) pruned(bound, incumbent float64) bool {
	if math.IsInf(incumbent, 1) {
		return false
	}
	tol := eps
	if o.opts.MIPGap > 0 {
		tol = math.Max(tol, o.opts.MIPGap*math.Abs(incumbent))
	}
	return bound >= incumbent-tol
}

func (o *SimplexOracle) branchAndBound(ctx context.Context, m *Model) (*Solution, error) {
	root := &bbNode{
		lower:     slices.Clone(m.ColLower),
		upper:     slices.Clone(m.ColUpper),
		dualBound: math.Inf(-1),
	}
	for j, k := range m.Kinds {
		if k != Continuous {
			root.lower[j] = math.Ceil(root.lower[j] - integralTol)
			if !isInf(root.upper[j]) {
				root.upper[j] = math.Floor(root.upper[j] + integralTol)
			}
		}
	}

	incumbent := math.Inf(1)
	var best []float64
	explored := 0

	nodes := NewStack[*bbNode]()
	nodes.Push(root)
	for nodes.Size() > 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if o.opts.MaxNodes > 0 && explored >= o.opts.MaxNodes {
			logrus.WithField("model", m.Name).Debugf("Node limit %d reached", o.opts.MaxNodes)
			return &Solution{Status: StatusNodeLimit, Values: best, Objective: incumbent}, nil
		}

		node := nodes.Pop()
		if o.pruned(node.dualBound, incumbent) {
			continue
		}
		relax, err := solveRelaxation(m, node.lower, node.upper)
		if err != nil {
			return nil, err
		}
		explored++
		if relax.status == StatusUnbounded && node.depth == 0 {
			return &Solution{Status: StatusUnbounded}, nil
		}
		if relax.status != StatusOptimal || o.pruned(relax.obj, incumbent) {
			continue
		}

		j := mostFractional(m, relax.values)
		if j < 0 {
			incumbent = relax.obj
			best = relax.values
			continue
		}

		v := relax.values[j]
		down := &bbNode{
			lower:     node.lower,
			upper:     slices.Clone(node.upper),
			dualBound: relax.obj,
			depth:     node.depth + 1,
		}
		down.upper[j] = math.Floor(v)
		up := &bbNode{
			lower:     slices.Clone(node.lower),
			upper:     node.upper,
			dualBound: relax.obj,
			depth:     node.depth + 1,
		}
		up.lower[j] = math.Ceil(v)

		// The child on the side v leans toward is explored first.
		children := []*bbNode{down, up}
		if v-math.Floor(v) >= 0.5 {
			children = []*bbNode{up, down}
		}
		for i := len(children) - 1; i >= 0; i-- {
			nodes.Push(children[i])
		}
	}

	logrus.WithFields(logrus.Fields{"model": m.Name, "nodes": explored}).Debug("Branch and bound finished")
	if best == nil {
		return &Solution{Status: StatusInfeasible}, nil
	}
	for j, k := range m.Kinds {
		if k != Continuous {
			best[j] = math.Round(best[j])
		}
	}
	return &Solution{Status: StatusOptimal, Values: best, Objective: m.Objective(best)}, nil
}
