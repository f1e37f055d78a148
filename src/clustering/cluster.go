// Package clustering groups demand scenarios before stratified sampling.
// Reducers project the NS×IS demand matrix to an embedding and clusterers
// assign one label per row. A label of Noise marks an outlier.
package clustering

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Noise is the label given to points that belong to no cluster.
const Noise = -1

type Reducer interface {
	Name() string
	Reduce(data *mat.Dense) (*mat.Dense, error)
}

type Clusterer interface {
	Name() string
	Cluster(data *mat.Dense) ([]int, error)
}

type ReductionConfig struct {
	Method string `yaml:"method"`
	// VarianceRatio is the share of variance the kept components must explain.
	VarianceRatio float64 `yaml:"variance_ratio"`
}

type Config struct {
	Method     string  `yaml:"method"`
	Clusters   int     `yaml:"clusters"`
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
	MaxIter    int     `yaml:"max_iter"`
	Seed       int64   `yaml:"seed"`
}

var (
	ValidReducers   = map[string]bool{"pca": true, "none": true}
	ValidClusterers = map[string]bool{"kmeans": true, "dbscan": true}
)

func NewReducer(cfg ReductionConfig) (Reducer, error) {
	switch cfg.Method {
	case "pca":
		ratio := cfg.VarianceRatio
		if ratio == 0 {
			ratio = 0.99
		}
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("variance_ratio must be in (0, 1], got %g", cfg.VarianceRatio)
		}
		return &PCA{VarianceRatio: ratio}, nil
	case "none", "":
		return Identity{}, nil
	}
	return nil, fmt.Errorf("unknown reduction method %q; valid: pca, none", cfg.Method)
}

func NewClusterer(cfg Config) (Clusterer, error) {
	switch cfg.Method {
	case "kmeans", "":
		if cfg.Clusters < 1 {
			return nil, fmt.Errorf("kmeans needs at least one cluster, got %d", cfg.Clusters)
		}
		maxIter := cfg.MaxIter
		if maxIter == 0 {
			maxIter = 300
		}
		return &KMeans{K: cfg.Clusters, MaxIter: maxIter, Seed: cfg.Seed}, nil
	case "dbscan":
		if cfg.Eps <= 0 {
			return nil, fmt.Errorf("dbscan eps must be positive, got %g", cfg.Eps)
		}
		minSamples := cfg.MinSamples
		if minSamples == 0 {
			minSamples = 5
		}
		return &DBSCAN{Eps: cfg.Eps, MinSamples: minSamples}, nil
	}
	return nil, fmt.Errorf("unknown clustering method %q; valid: kmeans, dbscan", cfg.Method)
}

// CountClusters returns the number of distinct non-noise labels.
func CountClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l != Noise {
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}

func distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
