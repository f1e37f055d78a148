package saa

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

// SolveExact solves the two-stage model over the whole scenario population.
// Its objective is the reference optimum for the gap.
func SolveExact(ctx context.Context, inst *Instance, oracle lp.Oracle, opts SolveOptions) (*Candidate, time.Duration, error) {
	start := time.Now()
	scenarios := make([]int, inst.NS)
	for s := range scenarios {
		scenarios[s] = s
	}
	t := &twoStage{
		name:      fmt.Sprintf("exact_NS_%d", inst.NS),
		inst:      inst,
		scenarios: scenarios,
		probs:     inst.Pr,
		integer:   opts.IntegerRecourse,
	}
	d, obj, costs, err := solveTwoStage(ctx, t, oracle, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	logrus.WithFields(logrus.Fields{
		"objective": obj,
		"elapsed":   elapsed,
	}).Info("Exact model solved")
	return &Candidate{Replication: -1, Decision: *d, Sample: Sample{Indices: scenarios}, Objective: obj, Costs: costs}, elapsed, nil
}
