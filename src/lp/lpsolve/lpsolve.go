// Package lpsolve registers lp_solve, through golp, as the "lpsolve" oracle.
//
// lp_solve only takes whole-second time limits, so a call may outlive its
// context deadline by up to a second before the solver stops on its own.
package lpsolve

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/draffensperger/golp"
	"github.com/sirupsen/logrus"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

// lp_solve treats anything at or beyond 1e30 as infinite.
const infinity = 1e30

func init() {
	lp.Register("lpsolve", func(opts lp.Options) lp.Oracle { return &Oracle{opts: opts} })
}

type Oracle struct {
	opts lp.Options
}

func (o *Oracle) Name() string {
	return "lpsolve"
}

func clampInf(v float64) float64 {
	switch {
	case math.IsInf(v, 1) || v > infinity:
		return infinity
	case math.IsInf(v, -1) || v < -infinity:
		return -infinity
	}
	return v
}

func toGolp(m *lp.Model, verbose bool) (*golp.LP, error) {
	model := golp.NewLP(0, m.NumCols())
	if verbose {
		model.SetVerboseLevel(golp.NORMAL)
	} else {
		model.SetVerboseLevel(golp.NEUTRAL)
	}
	model.SetObjFn(m.ColCosts)

	for j, k := range m.Kinds {
		switch k {
		case lp.Binary:
			model.SetBinary(j, true)
		case lp.Integer:
			model.SetInt(j, true)
		}
		lo, hi := clampInf(m.ColLower[j]), clampInf(m.ColUpper[j])
		if lo <= -infinity && hi >= infinity {
			model.SetUnbounded(j)
			continue
		}
		model.SetBounds(j, lo, hi)
	}

	for i, row := range m.Rows() {
		entries := make([]golp.Entry, len(row))
		for k, t := range row {
			entries[k] = golp.Entry{Col: t.Col, Val: t.Val}
		}
		lo, hi := m.RowLower[i], m.RowUpper[i]
		if lo == hi {
			if err := model.AddConstraintSparse(entries, golp.EQ, lo); err != nil {
				return nil, err
			}
			continue
		}
		if !math.IsInf(lo, -1) {
			if err := model.AddConstraintSparse(entries, golp.GE, lo); err != nil {
				return nil, err
			}
		}
		if !math.IsInf(hi, 1) {
			if err := model.AddConstraintSparse(entries, golp.LE, hi); err != nil {
				return nil, err
			}
		}
	}
	return model, nil
}

// timeoutSeconds rounds d up to the whole seconds lp_solve accepts.
func timeoutSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func statusOf(t golp.SolutionType) lp.Status {
	switch t {
	case golp.OPTIMAL:
		return lp.StatusOptimal
	case golp.INFEASIBLE:
		return lp.StatusInfeasible
	case golp.UNBOUNDED:
		return lp.StatusUnbounded
	case golp.TIMEOUT, golp.SUBOPTIMAL:
		return lp.StatusTimeLimit
	}
	return lp.StatusError
}

func (o *Oracle) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	model, err := toGolp(m, o.opts.Verbose)
	if err != nil {
		return nil, err
	}
	solve := func() (*lp.Solution, error) {
		t := model.Solve()
		status := statusOf(t)
		if status != lp.StatusOptimal {
			logrus.Debugf("lp_solve status: %v", t)
			return &lp.Solution{Status: status, Detail: fmt.Sprint(t)}, nil
		}
		values := model.Variables()
		for j, k := range m.Kinds {
			if k != lp.Continuous {
				values[j] = math.Round(values[j])
			}
		}
		return &lp.Solution{
			Status:    lp.StatusOptimal,
			Values:    values,
			Objective: model.Objective() + m.Offset,
			Detail:    fmt.Sprint(t),
		}, nil
	}
	// With a limit the solver stops itself, and the call returns before a
	// retry can start another one. Without one, cancellation abandons it.
	limit := lp.Remaining(ctx, o.opts.TimeLimit)
	if limit <= 0 {
		return lp.RunBlocking(ctx, solve)
	}
	model.SetTimeout(timeoutSeconds(limit))
	sol, err := solve()
	if err == nil && sol.Status != lp.StatusOptimal && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return sol, err
}
