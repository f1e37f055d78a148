package lp

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.PanicLevel)
	os.Exit(m.Run())
}

// flakyOracle reports a time limit for the first failures calls and
// then delegates to the simplex oracle.
type flakyOracle struct {
	failures int32
	calls    atomic.Int32
}

func (o *flakyOracle) Name() string {
	return "flaky"
}

func (o *flakyOracle) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if o.calls.Add(1) <= o.failures {
		return &Solution{Status: StatusTimeLimit, Detail: "time limit reached"}, nil
	}
	return NewSimplexOracle(Options{}).Solve(ctx, m)
}

func smallModel() (*Model, error) {
	m := NewModel("small")
	m.AddCols(1, 1, 0, 5, Integer)
	m.AddRow(2, 5, Term{Col: 0, Val: 1})
	return m, nil
}

func TestSolveWithRetry_SucceedsWithinBudget(t *testing.T) {
	oracle := &flakyOracle{failures: 2}
	builds := 0
	build := func() (*Model, error) {
		builds++
		return smallModel()
	}

	model, sol, err := SolveWithRetry(context.Background(), oracle, RetryPolicy{MaxAttempts: 3}, build)
	require.NoError(t, err)
	assert.Equal(t, "small", model.Name)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-9)
	assert.Equal(t, 3, builds)
}

func TestSolveWithRetry_ExhaustedAttemptsReturnTypedFailure(t *testing.T) {
	oracle := &flakyOracle{failures: 2}

	_, _, err := SolveWithRetry(context.Background(), oracle, RetryPolicy{MaxAttempts: 2}, smallModel)
	var failure *SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 2, failure.Attempts)
	assert.Equal(t, StatusTimeLimit, failure.Status)
	assert.Equal(t, "small", failure.Model)
	assert.Contains(t, err.Error(), "time limit reached")
}

func TestSolveWithRetry_ZeroAttemptsStillTriesOnce(t *testing.T) {
	oracle := &flakyOracle{}

	_, sol, err := SolveWithRetry(context.Background(), oracle, RetryPolicy{}, smallModel)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, int32(1), oracle.calls.Load())
}

func TestSolveWithRetry_BuildErrorStops(t *testing.T) {
	boom := errors.New("bad input")
	_, _, err := SolveWithRetry(context.Background(), &flakyOracle{}, RetryPolicy{MaxAttempts: 3},
		func() (*Model, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

type stuckOracle struct{}

func (stuckOracle) Name() string { return "stuck" }

func (stuckOracle) Solve(ctx context.Context, _ *Model) (*Solution, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSolveWithRetry_PerAttemptTimeoutCountsAsTimeLimit(t *testing.T) {
	_, _, err := SolveWithRetry(context.Background(), stuckOracle{},
		RetryPolicy{MaxAttempts: 2, Timeout: 10 * time.Millisecond}, smallModel)
	var failure *SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StatusTimeLimit, failure.Status)
	assert.Equal(t, 2, failure.Attempts)
}

func TestSolveWithRetry_CancelledContextIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := SolveWithRetry(ctx, &flakyOracle{}, RetryPolicy{MaxAttempts: 3}, smallModel)
	assert.ErrorIs(t, err, context.Canceled)
	var failure *SolverFailure
	assert.False(t, errors.As(err, &failure))
}

type panickyOracle struct{}

func (panickyOracle) Name() string { return "panicky" }

func (panickyOracle) Solve(context.Context, *Model) (*Solution, error) {
	panic("solver crashed")
}

func TestSolveWithRetry_RecoversOraclePanic(t *testing.T) {
	_, _, err := SolveWithRetry(context.Background(), panickyOracle{}, RetryPolicy{MaxAttempts: 1}, smallModel)
	var failure *SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StatusError, failure.Status)
	assert.Contains(t, err.Error(), "solver crashed")
}

// selfLimitingOracle runs until the time limit it was handed, the way a
// backend with a native limit does, and counts overlapping calls.
type selfLimitingOracle struct {
	running atomic.Int32
	peak    atomic.Int32
}

func (o *selfLimitingOracle) Name() string { return "self-limiting" }

func (o *selfLimitingOracle) Solve(ctx context.Context, _ *Model) (*Solution, error) {
	n := o.running.Add(1)
	defer o.running.Add(-1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(Remaining(ctx, time.Second))
	return &Solution{Status: StatusTimeLimit}, nil
}

func TestSolveWithRetry_SelfLimitingBackendRunsOneCallAtATime(t *testing.T) {
	oracle := &selfLimitingOracle{}
	_, _, err := SolveWithRetry(context.Background(), oracle,
		RetryPolicy{MaxAttempts: 3, Timeout: 20 * time.Millisecond}, smallModel)
	var failure *SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 3, failure.Attempts)
	assert.Equal(t, int32(1), oracle.peak.Load())
}
