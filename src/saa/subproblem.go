package saa

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

type SolveOptions struct {
	Policy lp.RetryPolicy
	// IntegerRecourse declares flows, surplus and shortage integer. With
	// integral demand and inventory the continuous recourse already has an
	// integral optimum, so this only matters for fractional demand data.
	IntegerRecourse bool
}

// solveTwoStage runs the retry loop on a two-stage model and reads back the
// decision and its cost breakdown.
func solveTwoStage(ctx context.Context, t *twoStage, oracle lp.Oracle, opts SolveOptions) (*Decision, float64, Costs, error) {
	var lay *layout
	build := func() (*lp.Model, error) {
		var m *lp.Model
		m, lay = t.build()
		return m, nil
	}
	_, sol, err := lp.SolveWithRetry(ctx, oracle, opts.Policy, build)
	if err != nil {
		return nil, 0, Costs{}, err
	}
	d := t.decision(lay, sol.Values)
	return d, sol.Objective, t.costs(lay, sol.Values, d), nil
}

// SolveSubproblem solves the two-stage model restricted to sample, each
// sampled scenario carrying the sample weight.
func SolveSubproblem(ctx context.Context, inst *Instance, sample Sample, oracle lp.Oracle, opts SolveOptions) (*Candidate, error) {
	if sample.Size() == 0 {
		return nil, fmt.Errorf("%w: subproblem needs at least one scenario", ErrSamplingDegenerate)
	}
	for _, s := range sample.Indices {
		if s < 0 || s >= inst.NS {
			return nil, fmt.Errorf("sample index %d outside [0, %d)", s, inst.NS)
		}
	}
	t := &twoStage{
		name:      fmt.Sprintf("getsol_SS_%d", sample.Size()),
		inst:      inst,
		scenarios: sample.Indices,
		probs:     sample.Probabilities(),
		integer:   opts.IntegerRecourse,
	}
	d, obj, costs, err := solveTwoStage(ctx, t, oracle, opts)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"scenarios": sample.Size(),
		"objective": obj,
		"open":      d.OpenFacilities(),
	}).Debug("Subproblem solved")
	return &Candidate{Decision: *d, Sample: sample, Objective: obj, Costs: costs}, nil
}
