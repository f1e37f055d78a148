package saa

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

// Result is the outcome of a SAA run.
type Result struct {
	Method string
	IS, NS int
	MS, SS int

	Best *Candidate
	// Costs is the full-population cost of Best.
	Costs     Costs
	Reference float64
	// Gap is (Costs.Total() - Reference) / Reference in percent.
	Gap float64

	Replications []Replication
	ClusterCount int
	Elapsed      time.Duration
	// Stopped is set when the run ended early for lack of improvement.
	Stopped bool
}

func (r *Result) Objective() float64 {
	return r.Costs.Total()
}

// Ranking lists the solved replications from cheapest to most expensive
// full-population cost. Equal costs keep replication order.
func (r *Result) Ranking() []Replication {
	pq := priorityqueue.New[int, float64](priorityqueue.MinHeap)
	for m, rep := range r.Replications {
		if rep.Status == ReplicationSolved {
			pq.Put(m, rep.TrueCosts.Total())
		}
	}
	ranked := make([]Replication, 0, pq.Len())
	for pq.Len() > 0 {
		item := pq.Get()
		rep := r.Replications[item.Value]
		k := len(ranked)
		ranked = append(ranked, rep)
		for k > 0 && ranked[k-1].TrueCosts.Total() == rep.TrueCosts.Total() && ranked[k-1].Index > rep.Index {
			ranked[k] = ranked[k-1]
			k--
		}
		ranked[k] = rep
	}
	return ranked
}

// Count returns how many replications ended with status.
func (r *Result) Count(status ReplicationStatus) int {
	n := 0
	for _, rep := range r.Replications {
		if rep.Status == status {
			n++
		}
	}
	return n
}

func (r *Result) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "Method: %s (IS=%d, NS=%d, MS=%d, SS=%d, clusters=%d)\n", r.Method, r.IS, r.NS, r.MS, r.SS, r.ClusterCount)
	fmt.Fprintf(s, "Replications: %d solved, %d failed, %d cancelled\n",
		r.Count(ReplicationSolved), r.Count(ReplicationFailed), r.Count(ReplicationCancelled))
	fmt.Fprintf(s, "Best replication: %d\n", r.Best.Replication)
	fmt.Fprintf(s, "Objective: %s\n", r.Costs)
	fmt.Fprintf(s, "Reference: %.4f, gap: %.4f%%\n", r.Reference, r.Gap)
	fmt.Fprintf(s, "Elapsed: %v\n", r.Elapsed)
	s.WriteString(r.Best.Decision.String())
	return s.String()
}
