package saa

import (
	"context"
	"fmt"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

// Evaluate returns the expected cost of a fixed first-stage decision over
// every scenario of inst, solving only the recourse.
func Evaluate(ctx context.Context, inst *Instance, d *Decision, oracle lp.Oracle, opts SolveOptions) (Costs, error) {
	if err := checkDecision(inst, d); err != nil {
		return Costs{}, err
	}
	scenarios := make([]int, inst.NS)
	for s := range scenarios {
		scenarios[s] = s
	}
	t := &twoStage{
		name:      fmt.Sprintf("renew_NS_%d", inst.NS),
		inst:      inst,
		scenarios: scenarios,
		probs:     inst.Pr,
		fixed:     d,
		integer:   opts.IntegerRecourse,
	}
	_, _, costs, err := solveTwoStage(ctx, t, oracle, opts)
	return costs, err
}
