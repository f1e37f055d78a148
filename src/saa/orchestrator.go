package saa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/sirupsen/logrus"

	"github.com/xzxcessarr/SAA-Solver/src/clustering"
	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

type ReplicationStatus int

const (
	ReplicationPending ReplicationStatus = iota
	ReplicationSolved
	ReplicationFailed
	// ReplicationCancelled marks work abandoned by an early stop.
	ReplicationCancelled
)

func (s ReplicationStatus) String() string {
	switch s {
	case ReplicationSolved:
		return "solved"
	case ReplicationFailed:
		return "failed"
	case ReplicationCancelled:
		return "cancelled"
	}
	return "pending"
}

// Replication is the outcome of one sample, solve, evaluate cycle.
type Replication struct {
	Index     int
	Status    ReplicationStatus
	Candidate *Candidate
	// TrueCosts is the full-population cost of the candidate.
	TrueCosts Costs
	Err       error
}

// Solver runs the SAA replications for one instance.
type Solver struct {
	cfg       Config
	inst      *Instance
	oracle    lp.Oracle
	reducer   clustering.Reducer
	clusterer clustering.Clusterer
	sampler   Sampler
}

func NewSolver(cfg Config, inst *Instance, oracle lp.Oracle, reducer clustering.Reducer, clusterer clustering.Clusterer) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampler, err := NewSampler(cfg.Sampling)
	if err != nil {
		return nil, err
	}
	return &Solver{
		cfg:       cfg,
		inst:      inst,
		oracle:    oracle,
		reducer:   reducer,
		clusterer: clusterer,
		sampler:   sampler,
	}, nil
}

// DefaultWorkers is the number of physical cores, or 1 when it cannot be
// determined.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		logrus.Debugf("Could not count CPU cores: %v", err)
		return 1
	}
	return n
}

// Strata clusters the scenario demand and normalizes the labels.
func (s *Solver) Strata() (*Strata, error) {
	embedding, err := s.reducer.Reduce(s.inst.Demand)
	if err != nil {
		return nil, fmt.Errorf("reducing demand: %w", err)
	}
	labels, err := s.clusterer.Cluster(embedding)
	if err != nil {
		return nil, fmt.Errorf("clustering demand: %w", err)
	}
	return NormalizeLabels(labels, s.cfg.Sampling.Noise)
}

func (s *Solver) replicate(ctx context.Context, m int, strata *Strata) Replication {
	rep := Replication{Index: m}
	log := logrus.WithField("replication", m)

	sample, err := s.sampler.Sample(ReplicationRNG(s.cfg.Seed, m), s.inst.Demand, strata, s.cfg.SampleSize)
	if err == nil {
		log.WithField("scenarios", sample.Indices).Debug("Sample drawn")
		rep.Candidate, err = SolveSubproblem(ctx, s.inst, sample, s.oracle, s.cfg.Solver.SolveOptions())
	}
	if err == nil {
		rep.Candidate.Replication = m
		rep.TrueCosts, err = Evaluate(ctx, s.inst, &rep.Candidate.Decision, s.oracle, s.cfg.Solver.SolveOptions())
	}
	switch {
	case err == nil:
		rep.Status = ReplicationSolved
		log.WithFields(logrus.Fields{
			"sample_objective": rep.Candidate.Objective,
			"true_objective":   rep.TrueCosts.Total(),
		}).Info("Replication solved")
	case ctx.Err() != nil:
		rep.Status = ReplicationCancelled
		rep.Err = ctx.Err()
	default:
		rep.Status = ReplicationFailed
		rep.Err = err
		log.Warnf("Replication failed: %v", err)
	}
	return rep
}

// Run executes every replication on a bounded worker pool, selects the
// candidate with the lowest full-population cost and computes the gap.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	strata, err := s.Strata()
	if err != nil {
		return nil, err
	}
	logrus.WithField("strata", strata.Count()).Info("Scenarios clustered")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ms := s.cfg.Replications
	workers := s.cfg.Workers
	if workers == 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, ms)

	reps := make([]Replication, ms)
	jobs := make(chan int)
	done := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if runCtx.Err() != nil {
					reps[m] = Replication{Index: m, Status: ReplicationCancelled, Err: runCtx.Err()}
				} else {
					reps[m] = s.replicate(runCtx, m, strata)
				}
				done <- m
			}
		}()
	}
	go func() {
		defer close(jobs)
		for m := range ms {
			select {
			case jobs <- m:
			case <-runCtx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	// Staleness is counted over replications in index order, so the stopping
	// point depends on the seed only.
	stopped := false
	cut := ms
	incumbent := math.Inf(1)
	stale, next := 0, 0
	finished := make([]bool, ms)
	for m := range done {
		finished[m] = true
		for ; !stopped && next < ms && finished[next]; next++ {
			if reps[next].Status != ReplicationSolved {
				continue
			}
			if v := reps[next].TrueCosts.Total(); v < incumbent {
				incumbent, stale = v, 0
				continue
			}
			stale++
			if s.cfg.Patience > 0 && stale >= s.cfg.Patience {
				logrus.WithFields(logrus.Fields{
					"patience":    s.cfg.Patience,
					"replication": next,
				}).Info("No improvement, stopping early")
				stopped, cut = true, next+1
				cancel()
			}
		}
	}
	for m := range reps {
		if m >= cut || reps[m].Status == ReplicationPending {
			reps[m] = Replication{Index: m, Status: ReplicationCancelled, Err: context.Canceled}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.summarize(reps, strata, stopped, time.Since(start))
}

func (s *Solver) summarize(reps []Replication, strata *Strata, stopped bool, elapsed time.Duration) (*Result, error) {
	best := -1
	var sampleSum float64
	solved, failed := 0, 0
	var firstErr error
	for m, rep := range reps {
		switch rep.Status {
		case ReplicationSolved:
			solved++
			sampleSum += rep.Candidate.Objective
			if best < 0 || rep.TrueCosts.Total() < reps[best].TrueCosts.Total() {
				best = m
			}
		case ReplicationFailed:
			failed++
			if firstErr == nil {
				firstErr = rep.Err
			}
		}
	}
	if best < 0 {
		err := fmt.Errorf("%w: %d of %d replications failed", ErrNoFeasibleCandidate, failed, len(reps))
		if firstErr != nil {
			err = errors.Join(err, firstErr)
		}
		return nil, err
	}

	res := &Result{
		Method:       s.cfg.MethodName(),
		IS:           s.inst.IS,
		NS:           s.inst.NS,
		MS:           len(reps),
		SS:           reps[best].Candidate.Sample.Size(),
		Best:         reps[best].Candidate,
		Costs:        reps[best].TrueCosts,
		Replications: reps,
		ClusterCount: strata.Count(),
		Elapsed:      elapsed,
		Stopped:      stopped,
		Reference:    s.cfg.Reference,
	}
	if res.Reference <= 0 {
		res.Reference = sampleSum / float64(solved)
	}
	if res.Reference != 0 {
		res.Gap = (res.Costs.Total() - res.Reference) / res.Reference * 100
	}
	logrus.WithFields(logrus.Fields{
		"best":      best,
		"objective": res.Costs.Total(),
		"gap":       res.Gap,
		"solved":    solved,
		"failed":    failed,
	}).Info("SAA finished")
	return res, nil
}
