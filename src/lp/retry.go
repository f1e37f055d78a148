package lp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SolverFailure is returned once every attempt at a model has failed.
type SolverFailure struct {
	Model    string
	Attempts int
	Status   Status
	Err      error
}

func (e *SolverFailure) Error() string {
	return fmt.Sprintf("solving %s failed after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

func (e *SolverFailure) Unwrap() error {
	return e.Err
}

// RetryPolicy bounds how often and how long a model is submitted.
type RetryPolicy struct {
	MaxAttempts int
	// Timeout applies to each submission; zero leaves only ctx in charge.
	Timeout time.Duration
}

// SolveWithRetry rebuilds and submits a model until the oracle reports an
// optimal solution or the attempts run out. Every attempt goes
// BUILD -> SUBMIT -> {OPTIMAL: done, otherwise retry or fail}. Cancellation of
// ctx stops the loop immediately.
func SolveWithRetry(ctx context.Context, oracle Oracle, policy RetryPolicy, build func() (*Model, error)) (*Model, *Solution, error) {
	attempts := max(policy.MaxAttempts, 1)
	failure := &SolverFailure{}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		model, err := build()
		if err != nil {
			return nil, nil, fmt.Errorf("building model: %w", err)
		}
		failure.Model = model.Name
		failure.Attempts = attempt

		log := logrus.WithFields(logrus.Fields{
			"model":   model.Name,
			"solver":  oracle.Name(),
			"attempt": attempt,
		})
		log.Debug(model)

		sol, err := submit(ctx, oracle, model, policy.Timeout)
		switch {
		case err == nil && sol.Status == StatusOptimal:
			return model, sol, nil
		case ctx.Err() != nil:
			return nil, nil, ctx.Err()
		case err != nil:
			failure.Status = StatusError
			failure.Err = err
		default:
			failure.Status = sol.Status
			failure.Err = fmt.Errorf("status: %v", describe(sol))
		}
		log.WithField("status", failure.Status).Warnf("Attempt failed: %v", failure.Err)
	}
	logrus.WithFields(logrus.Fields{
		"model":    failure.Model,
		"attempts": failure.Attempts,
	}).Errorf("Could not find an optimal solution: %v", failure.Err)
	return nil, nil, failure
}

func submit(ctx context.Context, oracle Oracle, model *Model, timeout time.Duration) (sol *Solution, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			sol, err = nil, fmt.Errorf("oracle panic: %v", r)
		}
	}()
	sol, err = oracle.Solve(ctx, model)
	if errors.Is(err, context.DeadlineExceeded) {
		return &Solution{Status: StatusTimeLimit}, nil
	}
	if err == nil && sol == nil {
		err = errors.New("oracle returned no solution")
	}
	return sol, err
}

func describe(sol *Solution) string {
	if sol.Detail != "" {
		return sol.Detail
	}
	return sol.Status.String()
}
