package clustering

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans is Lloyd's algorithm seeded with k-means++.
type KMeans struct {
	K       int
	MaxIter int
	Seed    int64
}

func (km *KMeans) Name() string {
	return "kmeans"
}

func (km *KMeans) Cluster(data *mat.Dense) ([]int, error) {
	n, d := data.Dims()
	if km.K > n {
		return nil, fmt.Errorf("kmeans: %d clusters requested for %d points", km.K, n)
	}
	rng := rand.New(rand.NewSource(km.Seed))
	centers := km.seed(rng, data)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for ; iter < km.MaxIter; iter++ {
		changed := false
		for i := range n {
			c := nearest(centers, data.RawRowView(i))
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := mat.NewDense(km.K, d, nil)
		counts := make([]int, km.K)
		for i, c := range labels {
			floats.Add(sums.RawRowView(c), data.RawRowView(i))
			counts[c]++
		}
		for c := range km.K {
			if counts[c] == 0 {
				// An emptied cluster restarts at the point farthest from its center.
				centers.SetRow(c, data.RawRowView(farthest(centers, data, labels)))
				continue
			}
			row := sums.RawRowView(c)
			floats.Scale(1/float64(counts[c]), row)
			centers.SetRow(c, row)
		}
	}
	logrus.WithFields(logrus.Fields{"clusters": km.K, "iterations": iter}).Debug("k-means converged")
	return labels, nil
}

// seed picks initial centers with probability proportional to the squared
// distance from the closest center chosen so far.
func (km *KMeans) seed(rng *rand.Rand, data *mat.Dense) *mat.Dense {
	n, d := data.Dims()
	centers := mat.NewDense(km.K, d, nil)
	centers.SetRow(0, data.RawRowView(rng.Intn(n)))
	dist := make([]float64, n)
	for c := 1; c < km.K; c++ {
		for i := range n {
			best := math.Inf(1)
			for k := range c {
				best = math.Min(best, sqDistance(centers.RawRowView(k), data.RawRowView(i)))
			}
			dist[i] = best
		}
		total := floats.Sum(dist)
		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, v := range dist {
				target -= v
				if target <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(n)
		}
		centers.SetRow(c, data.RawRowView(pick))
	}
	return centers
}

func nearest(centers *mat.Dense, point []float64) int {
	k, _ := centers.Dims()
	best, bestDist := 0, math.Inf(1)
	for c := range k {
		if dd := sqDistance(centers.RawRowView(c), point); dd < bestDist {
			best, bestDist = c, dd
		}
	}
	return best
}

func farthest(centers *mat.Dense, data *mat.Dense, labels []int) int {
	best, bestDist := 0, -1.0
	for i, c := range labels {
		if dd := sqDistance(centers.RawRowView(c), data.RawRowView(i)); dd > bestDist {
			best, bestDist = i, dd
		}
	}
	return best
}

func sqDistance(a, b []float64) float64 {
	dd := distance(a, b)
	return dd * dd
}
