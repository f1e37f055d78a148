package saa

import (
	"errors"
	"fmt"
)

var (
	// ErrSamplingDegenerate reports a stratified draw that would select no
	// scenario at all, typically because every stratum has zero dispersion.
	ErrSamplingDegenerate = errors.New("sampling degenerate: empty scenario sample")

	// ErrNoFeasibleCandidate reports a run in which every replication failed.
	ErrNoFeasibleCandidate = errors.New("no feasible candidate found")
)

// InputDataError is raised while loading scenario data or configuration and
// is never retried.
type InputDataError struct {
	Field  string
	Reason string
}

func (e *InputDataError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

func inputErrorf(field, format string, args ...any) error {
	return &InputDataError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
