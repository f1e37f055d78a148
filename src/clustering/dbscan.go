package clustering

import (
	mapset "github.com/deckarep/golang-set/v2"
	"gonum.org/v1/gonum/mat"
)

// DBSCAN labels density-connected points; points reachable from no core
// point get Noise.
type DBSCAN struct {
	Eps        float64
	MinSamples int
}

func (db *DBSCAN) Name() string {
	return "dbscan"
}

func (db *DBSCAN) neighbors(data *mat.Dense, p int) []int {
	n, _ := data.Dims()
	var out []int
	for q := range n {
		if distance(data.RawRowView(p), data.RawRowView(q)) <= db.Eps {
			out = append(out, q)
		}
	}
	return out
}

func (db *DBSCAN) Cluster(data *mat.Dense) ([]int, error) {
	n, _ := data.Dims()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	visited := mapset.NewThreadUnsafeSet[int]()
	cluster := 0
	for p := range n {
		if visited.Contains(p) {
			continue
		}
		visited.Add(p)
		seeds := db.neighbors(data, p)
		if len(seeds) < db.MinSamples {
			continue
		}

		labels[p] = cluster
		queued := mapset.NewThreadUnsafeSet[int](seeds...)
		for k := 0; k < len(seeds); k++ {
			q := seeds[k]
			if labels[q] == Noise {
				labels[q] = cluster
			}
			if visited.Contains(q) {
				continue
			}
			visited.Add(q)
			more := db.neighbors(data, q)
			if len(more) < db.MinSamples {
				continue
			}
			for _, r := range more {
				if queued.Add(r) {
					seeds = append(seeds, r)
				}
			}
		}
		cluster++
	}
	return labels, nil
}
