// Package generator builds synthetic hurricane-relief scenario repositories.
package generator

import (
	"errors"
	"math"
	"math/rand"

	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

var (
	hurricaneLevels        = []float64{1, 2, 3, 4, 5}
	hurricaneProbabilities = []float64{0.4, 0.2, 0.2, 0.15, 0.05}
	damageFactors          = []float64{0, 0.5, 0.8, 1}
)

// Weights of the distance damage factor and of the hurricane level in the
// share of a city's population that is affected.
const (
	distanceWeight = 0.5
	levelWeight    = 0.5
)

type Config struct {
	Cities        int
	Scenarios     int
	MinDistance   float64
	MaxDistance   float64
	MinPopulation int
	MaxPopulation int
	// Realistic derives damage from the distance to the landing city;
	// otherwise a random subset of cities is hit with random damage.
	Realistic   bool
	Seed        int64
	DemandIndex float64
}

func DefaultConfig() Config {
	return Config{
		Cities:        20,
		Scenarios:     100,
		MinDistance:   100,
		MaxDistance:   1000,
		MinPopulation: 10000,
		MaxPopulation: 50000,
		Realistic:     true,
		DemandIndex:   saa.DefaultDemandIndex,
	}
}

// DefaultFacilities are small, medium and large warehouses.
func DefaultFacilities() []saa.FacilitySize {
	return []saa.FacilitySize{
		{Name: "small", FixedCost: 19600, Capacity: 36400},
		{Name: "medium", FixedCost: 188400, Capacity: 408200},
		{Name: "large", FixedCost: 300000, Capacity: 780000},
	}
}

// DefaultCommodities are water, food and medical kits.
func DefaultCommodities() []saa.Commodity {
	return []saa.Commodity{
		{Name: "water", Volume: 144.6, Price: 647.7, Transport: 0.3, Holding: 129.54, Penalty: 6477, DemandScale: 1},
		{Name: "food", Volume: 83.33, Price: 5420, Transport: 0.04, Holding: 1084, Penalty: 54200, DemandScale: 0.25},
		{Name: "medical", Volume: 1.16, Price: 140, Transport: 0.00058, Holding: 28, Penalty: 1400, DemandScale: 0.125},
	}
}

func (c Config) validate() error {
	switch {
	case c.Cities < 2:
		return errors.New("at least two cities are required")
	case c.Scenarios < 1:
		return errors.New("at least one scenario is required")
	case c.MinDistance < 0 || c.MaxDistance < c.MinDistance:
		return errors.New("distance range is invalid")
	case c.MinPopulation < 0 || c.MaxPopulation < c.MinPopulation:
		return errors.New("population range is invalid")
	case c.DemandIndex <= 0:
		return errors.New("demand index must be positive")
	}
	return nil
}

// DistanceMatrix returns a symmetric matrix of integer distances drawn
// uniformly from [lo, hi].
func DistanceMatrix(rng *rand.Rand, cities int, lo, hi float64) [][]float64 {
	h := make([][]float64, cities)
	for i := range h {
		h[i] = make([]float64, cities)
	}
	for i := range cities {
		for j := i + 1; j < cities; j++ {
			d := math.RoundToEven(lo + rng.Float64()*(hi-lo))
			h[i][j], h[j][i] = d, d
		}
	}
	return h
}

func Populations(rng *rand.Rand, cities, lo, hi int) []float64 {
	pop := make([]float64, cities)
	for i := range pop {
		pop[i] = float64(lo + rng.Intn(hi-lo+1))
	}
	return pop
}

// DamageFactor maps the distance from the landing city to the share of
// damage it causes.
func DamageFactor(distance float64) float64 {
	switch {
	case distance <= 200:
		return 1
	case distance <= 400:
		return 0.8
	case distance <= 500:
		return 0.5
	}
	return 0
}

func affected(population, damage, level float64) float64 {
	return math.RoundToEven(population * (distanceWeight*damage + levelWeight*level/5))
}

func choose(rng *rand.Rand, values, probabilities []float64) float64 {
	r := rng.Float64()
	for k, p := range probabilities {
		if r < p {
			return values[k]
		}
		r -= p
	}
	return values[len(values)-1]
}

// AffectedPopulations returns one row per scenario with the affected
// population of every city.
func AffectedPopulations(rng *rand.Rand, cfg Config, populations []float64, distance [][]float64) [][]float64 {
	out := make([][]float64, cfg.Scenarios)
	uniform := []float64{0.25, 0.25, 0.25, 0.25}
	for s := range out {
		row := make([]float64, cfg.Cities)
		level := choose(rng, hurricaneLevels, hurricaneProbabilities)
		landing := rng.Intn(cfg.Cities)
		if cfg.Realistic {
			for i := range row {
				row[i] = affected(populations[i], DamageFactor(distance[landing][i]), level)
			}
		} else {
			hit := 1 + rng.Intn(cfg.Cities-1)
			for _, i := range rng.Perm(cfg.Cities)[:hit] {
				row[i] = affected(populations[i], choose(rng, damageFactors, uniform), level)
			}
		}
		out[s] = row
	}
	return out
}

// Generate builds a complete scenario repository with uniform probabilities.
func Generate(cfg Config) (*saa.InstanceData, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	distance := DistanceMatrix(rng, cfg.Cities, cfg.MinDistance, cfg.MaxDistance)
	populations := Populations(rng, cfg.Cities, cfg.MinPopulation, cfg.MaxPopulation)
	return &saa.InstanceData{
		FacilitySizes: DefaultFacilities(),
		Commodities:   DefaultCommodities(),
		Distance:      distance,
		Scenarios:     AffectedPopulations(rng, cfg, populations, distance),
		DemandIndex:   cfg.DemandIndex,
	}, nil
}
