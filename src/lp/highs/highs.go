// Package highs registers the HiGHS MIP solver as the "highs" oracle.
package highs

import (
	"context"
	"math"

	"github.com/lanl/highs"
	"github.com/sirupsen/logrus"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

func init() {
	lp.Register("highs", func(opts lp.Options) lp.Oracle { return &Oracle{opts: opts} })
}

type Oracle struct {
	opts lp.Options
}

func (o *Oracle) Name() string {
	return "highs"
}

func toHighsModel(m *lp.Model) *highs.Model {
	model := &highs.Model{
		ColCosts: m.ColCosts,
		Offset:   m.Offset,
		ColLower: m.ColLower,
		ColUpper: m.ColUpper,
		RowLower: m.RowLower,
		RowUpper: m.RowUpper,
		VarTypes: make([]highs.VariableType, m.NumCols()),
	}
	for j, k := range m.Kinds {
		if k == lp.Continuous {
			model.VarTypes[j] = highs.ContinuousType
		} else {
			model.VarTypes[j] = highs.IntegerType
		}
	}
	model.ConstMatrix = make([]highs.Nonzero, len(m.ConstMatrix))
	for i, nz := range m.ConstMatrix {
		model.ConstMatrix[i] = highs.Nonzero{Row: nz.Row, Col: nz.Col, Val: nz.Val}
	}
	return model
}

func statusOf(s highs.ModelStatus) lp.Status {
	switch s {
	case highs.Optimal:
		return lp.StatusOptimal
	case highs.Infeasible:
		return lp.StatusInfeasible
	case highs.Unbounded:
		return lp.StatusUnbounded
	case highs.TimeLimit:
		return lp.StatusTimeLimit
	}
	return lp.StatusError
}

func (o *Oracle) runHighsSolver(ctx context.Context, model *highs.Model) (*lp.Solution, error) {
	raw, err := model.ToRawModel()
	if err != nil {
		return nil, err
	}
	if err := raw.SetBoolOption("output_flag", o.opts.Verbose); err != nil {
		return nil, err
	}
	if limit := lp.Remaining(ctx, o.opts.TimeLimit); limit > 0 {
		if err := raw.SetFloat64Option("time_limit", limit.Seconds()); err != nil {
			return nil, err
		}
	}
	if o.opts.Threads > 0 {
		if err := raw.SetIntOption("threads", o.opts.Threads); err != nil {
			return nil, err
		}
	}
	if o.opts.MIPGap > 0 {
		if err := raw.SetFloat64Option("mip_rel_gap", o.opts.MIPGap); err != nil {
			return nil, err
		}
	}

	solution, err := raw.Solve()
	if err != nil {
		return nil, err
	}
	if solution.Status != highs.Optimal {
		logrus.Debugf("HiGHS status: %v", solution.Status.String())
		return &lp.Solution{Status: statusOf(solution.Status), Detail: solution.Status.String()}, nil
	}
	return &lp.Solution{
		Status:    lp.StatusOptimal,
		Values:    solution.ColumnPrimal,
		Objective: solution.Objective,
		Detail:    solution.Status.String(),
	}, nil
}

func (o *Oracle) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	model := toHighsModel(m)
	sol, err := lp.RunBlocking(ctx, func() (*lp.Solution, error) {
		return o.runHighsSolver(ctx, model)
	})
	if err != nil || sol.Status != lp.StatusOptimal {
		return sol, err
	}
	for j, k := range m.Kinds {
		if k != lp.Continuous {
			sol.Values[j] = math.Round(sol.Values[j])
		}
	}
	return sol, nil
}
