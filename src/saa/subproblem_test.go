package saa

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

func assertFirstStageFeasible(t *testing.T, inst *Instance, d *Decision) {
	t.Helper()
	for i := range inst.IS {
		open, capacity := 0.0, 0.0
		for l := range inst.LS {
			x := d.X.At(i, l)
			assert.True(t, x == 0 || x == 1, "x[%d][%d] = %g is not binary", i, l, x)
			open += x
			capacity += x * inst.U.AtVec(l)
		}
		assert.LessOrEqual(t, open, 1.0)
		used := 0.0
		for a := range inst.AS {
			y := d.Y.At(a, i)
			assert.GreaterOrEqual(t, y, 0.0)
			assert.Equal(t, math.Round(y), y)
			used += y * inst.V.AtVec(a)
		}
		assert.LessOrEqual(t, used, capacity+1e-9)
	}
}

func TestSolveSubproblem_SingleScenarioMatchesDeterministicModel(t *testing.T) {
	data := smallData()
	inst := mustInstance(t, data)
	oracle := simplexOracle(t)

	for s := range inst.NS {
		cand, err := SolveSubproblem(context.Background(), inst, newSample([]int{s}), oracle, testOptions)
		require.NoError(t, err)

		single := smallData()
		single.Scenarios = [][]float64{data.Scenarios[s]}
		exact, _, err := SolveExact(context.Background(), mustInstance(t, single), oracle, testOptions)
		require.NoError(t, err)

		assert.InDelta(t, exact.Objective, cand.Objective, 1e-6, "scenario %d", s)
		assertFirstStageFeasible(t, inst, &cand.Decision)
	}
}

func TestSolveSubproblem_CostBreakdownAddsUp(t *testing.T) {
	inst := mustInstance(t, smallData())
	cand, err := SolveSubproblem(context.Background(), inst, newSample([]int{0, 2, 3}), simplexOracle(t), testOptions)
	require.NoError(t, err)

	assert.InDelta(t, cand.Objective, cand.Costs.Total(), 1e-6)
	assert.Equal(t, []int{0, 2, 3}, cand.Sample.Indices)
	assert.Greater(t, cand.Costs.Fixed, 0.0)
}

func TestSolveSubproblem_EmptySampleIsDegenerate(t *testing.T) {
	inst := mustInstance(t, smallData())
	_, err := SolveSubproblem(context.Background(), inst, Sample{}, simplexOracle(t), testOptions)
	assert.ErrorIs(t, err, ErrSamplingDegenerate)
}

func TestSolveSubproblem_RetriesFlakyOracle(t *testing.T) {
	inst := mustInstance(t, smallData())
	sample := newSample([]int{1})

	cand, err := SolveSubproblem(context.Background(), inst, sample, &flakyOracle{failures: 2},
		SolveOptions{Policy: lp.RetryPolicy{MaxAttempts: 3}})
	require.NoError(t, err)
	assert.NotNil(t, cand)

	_, err = SolveSubproblem(context.Background(), inst, sample, &flakyOracle{failures: 2},
		SolveOptions{Policy: lp.RetryPolicy{MaxAttempts: 2}})
	var failure *lp.SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 2, failure.Attempts)
	assert.Equal(t, lp.StatusError, failure.Status)
}

func TestEvaluate_FixedDecisionCost(t *testing.T) {
	inst := mustInstance(t, smallData())
	oracle := simplexOracle(t)

	// Nothing open: every unit of demand is short.
	nothing := NewDecision(inst.IS, inst.AS, inst.LS)
	costs, err := Evaluate(context.Background(), inst, nothing, oracle, testOptions)
	require.NoError(t, err)
	// Mean total demand is (6 + 7 + 9 + 9) / 4.
	assert.InDelta(t, 15*31.0/4, costs.Shortage, 1e-6)
	assert.Zero(t, costs.Fixed)
	assert.InDelta(t, costs.Shortage, costs.Total(), 1e-6)

	// One large depot in the middle stocked with 9 kits.
	d := NewDecision(inst.IS, inst.AS, inst.LS)
	d.X.Set(1, 1, 1)
	d.Y.Set(0, 1, 9)
	costs, err = Evaluate(context.Background(), inst, d, oracle, testOptions)
	require.NoError(t, err)
	assert.Equal(t, 45.0, costs.Fixed)
	assert.Equal(t, 18.0, costs.Procurement)
	assert.Zero(t, costs.Shortage)
	assert.Greater(t, costs.Transport, 0.0)
	assert.Greater(t, costs.Holding, 0.0)
}

func TestEvaluate_RejectsMisshapenDecision(t *testing.T) {
	inst := mustInstance(t, smallData())
	_, err := Evaluate(context.Background(), inst, NewDecision(2, 1, 2), simplexOracle(t), testOptions)
	assert.Error(t, err)
}

func TestSolveExact_IsNoWorseThanAnyCandidate(t *testing.T) {
	inst := mustInstance(t, smallData())
	oracle := simplexOracle(t)

	exact, _, err := SolveExact(context.Background(), inst, oracle, testOptions)
	require.NoError(t, err)
	assertFirstStageFeasible(t, inst, &exact.Decision)

	trueExact, err := Evaluate(context.Background(), inst, &exact.Decision, oracle, testOptions)
	require.NoError(t, err)
	assert.InDelta(t, exact.Objective, trueExact.Total(), 1e-6)

	for _, sample := range [][]int{{0}, {1}, {2}, {3}, {0, 1}, {2, 3}, {0, 3}} {
		cand, err := SolveSubproblem(context.Background(), inst, newSample(sample), oracle, testOptions)
		require.NoError(t, err)
		costs, err := Evaluate(context.Background(), inst, &cand.Decision, oracle, testOptions)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, costs.Total()-exact.Objective, -1e-6, "sample %v", sample)
	}
}

// limitOracle records the time limit a backend would apply to each call.
type limitOracle struct {
	fallback time.Duration
	seen     []time.Duration
}

func (o *limitOracle) Name() string {
	return "limit"
}

func (o *limitOracle) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	o.seen = append(o.seen, lp.Remaining(ctx, o.fallback))
	return lp.NewSimplexOracle(lp.Options{}).Solve(ctx, m)
}

func TestSolveExact_BackendSeesExactTimeout(t *testing.T) {
	cfg := DefaultConfig().Solver
	require.Greater(t, cfg.ExactTimeout, cfg.Timeout)
	oracle := &limitOracle{fallback: cfg.Options().TimeLimit}

	_, _, err := SolveExact(context.Background(), mustInstance(t, smallData()), oracle, cfg.ExactOptions())
	require.NoError(t, err)
	require.Len(t, oracle.seen, 1)
	assert.Greater(t, oracle.seen[0], cfg.Timeout)
	assert.LessOrEqual(t, oracle.seen[0], cfg.ExactTimeout)

	oracle.seen = nil
	_, err = SolveSubproblem(context.Background(), mustInstance(t, smallData()), newSample([]int{0}), oracle, cfg.SolveOptions())
	require.NoError(t, err)
	require.Len(t, oracle.seen, 1)
	assert.LessOrEqual(t, oracle.seen[0], cfg.Timeout)
}
