package lp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
	StatusNodeLimit
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	case StatusNodeLimit:
		return "NODE_LIMIT"
	case StatusError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Solution is what an oracle reports back. Values is indexed like the model
// columns and is only meaningful when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	// Detail carries the backend's own status name when it has one.
	Detail string
}

// Options tune a backend. TimeLimit only applies to calls whose context
// carries no deadline; zero means no limit.
type Options struct {
	TimeLimit time.Duration
	Threads   int
	MIPGap    float64
	MaxNodes  int
	Verbose   bool
}

// Oracle solves a model. Implementations must honour ctx cancellation by
// returning promptly; a call still running inside a C library is abandoned and
// its result discarded.
type Oracle interface {
	Name() string
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// Factory builds an oracle from options.
type Factory func(opts Options) Oracle

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available by name. Backends call it from init().
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("lp: oracle %q registered twice", name))
	}
	registry[name] = f
}

// New returns the registered oracle called name.
func New(name string, opts Options) (Oracle, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown solver %q (available: %v)", name, Available())
	}
	return f(opts), nil
}

// Available lists registered oracle names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunBlocking runs a blocking solve in its own goroutine so that ctx
// cancellation or deadline returns immediately. A panic inside solve is
// reported as an error.
func RunBlocking(ctx context.Context, solve func() (*Solution, error)) (*Solution, error) {
	type outcome struct {
		sol *Solution
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{nil, fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		sol, err := solve()
		done <- outcome{sol, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.sol, o.err
	}
}

// minRemaining is handed to backends once ctx's deadline has passed, so an
// abandoned call still stops on its own.
const minRemaining = time.Millisecond

// Remaining returns the time a backend may spend on the current call: the time
// left before ctx's deadline, or fallback when ctx has none. The deadline wins
// even when it is later than fallback.
func Remaining(ctx context.Context, fallback time.Duration) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if left := time.Until(dl); left > minRemaining {
		return left
	}
	return minRemaining
}
