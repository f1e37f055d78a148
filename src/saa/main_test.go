package saa

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.PanicLevel)
	os.Exit(m.Run())
}

// twoClusterData has five locations on a line and ten scenarios: five low
// demand and five high demand, each group with the same spread.
func twoClusterData() *InstanceData {
	data := &InstanceData{
		FacilitySizes: []FacilitySize{{Name: "depot", FixedCost: 100, Capacity: 200}},
		Commodities: []Commodity{{
			Name: "water", Volume: 1, Price: 1, Transport: 0.1, Holding: 0.5, Penalty: 20, DemandScale: 1,
		}},
		DemandIndex: 1,
	}
	const is = 5
	data.Distance = make([][]float64, is)
	for i := range is {
		data.Distance[i] = make([]float64, is)
		for j := range is {
			data.Distance[i][j] = 10 * float64(max(i-j, j-i))
		}
	}
	for _, base := range []float64{10, 40} {
		for k := range is {
			row := make([]float64, is)
			for i := range row {
				row[i] = base
			}
			row[k] += 4
			data.Scenarios = append(data.Scenarios, row)
		}
	}
	return data
}

func smallData() *InstanceData {
	return &InstanceData{
		FacilitySizes: []FacilitySize{
			{Name: "small", FixedCost: 20, Capacity: 10},
			{Name: "large", FixedCost: 45, Capacity: 30},
		},
		Commodities: []Commodity{{
			Name: "kit", Volume: 1, Price: 2, Transport: 0.5, Holding: 1, Penalty: 15, DemandScale: 1,
		}},
		Distance: [][]float64{
			{0, 3, 6},
			{3, 0, 4},
			{6, 4, 0},
		},
		Scenarios: [][]float64{
			{4, 0, 2},
			{0, 6, 1},
			{3, 3, 3},
			{8, 1, 0},
		},
		DemandIndex: 1,
	}
}

func mustInstance(t *testing.T, data *InstanceData) *Instance {
	t.Helper()
	inst, err := NewInstance(data, 0, 0)
	require.NoError(t, err)
	return inst
}

func simplexOracle(t *testing.T) lp.Oracle {
	t.Helper()
	oracle, err := lp.New("simplex", lp.Options{})
	require.NoError(t, err)
	return oracle
}

var testOptions = SolveOptions{Policy: lp.RetryPolicy{MaxAttempts: 3}}

// flakyOracle fails its first calls and then solves with the simplex oracle.
type flakyOracle struct {
	failures int32
	calls    atomic.Int32
}

func (o *flakyOracle) Name() string {
	return "flaky"
}

func (o *flakyOracle) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	if o.calls.Add(1) <= o.failures {
		return &lp.Solution{Status: lp.StatusError, Detail: "license unavailable"}, nil
	}
	return lp.NewSimplexOracle(lp.Options{}).Solve(ctx, m)
}

// failingOracle never succeeds.
type failingOracle struct{}

func (failingOracle) Name() string { return "failing" }

func (failingOracle) Solve(context.Context, *lp.Model) (*lp.Solution, error) {
	return &lp.Solution{Status: lp.StatusInfeasible}, nil
}
