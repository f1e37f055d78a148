package saa

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Costs decomposes an objective value. Scenario-dependent parts are already
// weighted by scenario probability.
type Costs struct {
	Fixed       float64
	Procurement float64
	Transport   float64
	Holding     float64
	Shortage    float64
}

func (c Costs) Total() float64 {
	return c.Fixed + c.Procurement + c.Transport + c.Holding + c.Shortage
}

func (c Costs) String() string {
	return fmt.Sprintf("total %.4f (fixed %.4f, procurement %.4f, transport %.4f, holding %.4f, shortage %.4f)",
		c.Total(), c.Fixed, c.Procurement, c.Transport, c.Holding, c.Shortage)
}

// Decision is a first-stage plan: X (IS×LS) marks the facility size opened at
// each location and Y (AS×IS) the pre-positioned inventory.
type Decision struct {
	X *mat.Dense
	Y *mat.Dense
}

func NewDecision(is, as, ls int) *Decision {
	return &Decision{X: mat.NewDense(is, ls, nil), Y: mat.NewDense(as, is, nil)}
}

// OpenFacilities counts locations hosting a facility.
func (d *Decision) OpenFacilities() int {
	rows, _ := d.X.Dims()
	open := 0
	for i := range rows {
		if mat.Sum(d.X.RowView(i)) > 0.5 {
			open++
		}
	}
	return open
}

func (d *Decision) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "Facilities (%d open):\n%v\n", d.OpenFacilities(), mat.Formatted(d.X, mat.Squeeze()))
	fmt.Fprintf(s, "Inventory:\n%v", mat.Formatted(d.Y, mat.Squeeze()))
	return s.String()
}

// Sample is a set of distinct scenario indices resampled with uniform
// probability.
type Sample struct {
	Indices []int
	Weight  float64
}

func newSample(indices []int) Sample {
	s := Sample{Indices: indices}
	if len(indices) > 0 {
		s.Weight = 1 / float64(len(indices))
	}
	return s
}

func (s Sample) Size() int {
	return len(s.Indices)
}

func (s Sample) Probabilities() []float64 {
	pr := make([]float64, len(s.Indices))
	for k := range pr {
		pr[k] = s.Weight
	}
	return pr
}

// Candidate is the optimum of one subproblem.
type Candidate struct {
	Decision
	Replication int
	Sample      Sample
	// Objective is the optimal value of the sample-restricted model.
	Objective float64
	Costs     Costs
}
