package saa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstance_DerivesDemandWithHalfEvenRounding(t *testing.T) {
	data := &InstanceData{
		FacilitySizes: []FacilitySize{{FixedCost: 1, Capacity: 10}},
		Commodities: []Commodity{
			{Name: "water", Volume: 1, DemandScale: 1},
			{Name: "food", Volume: 1, DemandScale: 0.5},
		},
		Distance:    [][]float64{{0, 1, 2}, {1, 0, 1}, {2, 1, 0}},
		Scenarios:   [][]float64{{5, 7, 10}},
		DemandIndex: 0.5,
	}
	inst, err := NewInstance(data, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4, 5}, inst.Demand.RawRowView(0))
	assert.Equal(t, []float64{2, 4, 5}, inst.D[0].RawRowView(0))
	assert.Equal(t, []float64{1, 2, 2}, inst.D[0].RawRowView(1))
	assert.Equal(t, []float64{1}, inst.Pr)
}

func TestNewInstance_TruncatesAndRenormalizes(t *testing.T) {
	data := smallData()
	data.Probabilities = []float64{0.1, 0.3, 0.2, 0.4}

	inst, err := NewInstance(data, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.IS)
	assert.Equal(t, 2, inst.NS)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, inst.Pr, 1e-12)
	r, c := inst.H.Dims()
	assert.Equal(t, []int{2, 2}, []int{r, c})
}

func TestNewInstance_UniformProbabilitiesByDefault(t *testing.T) {
	inst := mustInstance(t, smallData())
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, inst.Pr, 1e-12)
}

func TestNewInstance_RejectsMalformedData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*InstanceData)
		field  string
	}{
		{"asymmetric distance", func(d *InstanceData) { d.Distance[0][1] = 9 }, "distance[0][1]"},
		{"negative distance", func(d *InstanceData) { d.Distance[1][2], d.Distance[2][1] = -1, -1 }, "distance[1][2]"},
		{"short distance row", func(d *InstanceData) { d.Distance[2] = d.Distance[2][:1] }, "distance[2]"},
		{"short scenario", func(d *InstanceData) { d.Scenarios[1] = []float64{1} }, "scenarios[1]"},
		{"negative demand", func(d *InstanceData) { d.Scenarios[0][0] = -3 }, "scenarios[0][0]"},
		{"probabilities off", func(d *InstanceData) { d.Probabilities = []float64{0.5, 0.5, 0.5, 0.5} }, "probabilities"},
		{"zero capacity", func(d *InstanceData) { d.FacilitySizes[0].Capacity = 0 }, "facility_sizes[0].capacity"},
		{"zero volume", func(d *InstanceData) { d.Commodities[0].Volume = 0 }, "commodities[0].volume"},
		{"negative penalty", func(d *InstanceData) { d.Commodities[0].Penalty = -1 }, "commodities[0].penalty"},
		{"missing index", func(d *InstanceData) { d.DemandIndex = 0 }, "demand_index"},
		{"no sizes", func(d *InstanceData) { d.FacilitySizes = nil }, "facility_sizes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := smallData()
			tt.mutate(data)
			_, err := NewInstance(data, 0, 0)
			var inputErr *InputDataError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestNewInstance_RejectsOversizedRequest(t *testing.T) {
	_, err := NewInstance(smallData(), 4, 0)
	assert.ErrorAs(t, err, new(*InputDataError))
	_, err = NewInstance(smallData(), 0, 5)
	assert.ErrorAs(t, err, new(*InputDataError))
}

func TestLoadInstance_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.yaml")
	require.NoError(t, WriteInstanceData(path, smallData()))

	inst, err := LoadInstance(path, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, inst.IS)
	assert.Equal(t, 3, inst.NS)
	assert.Equal(t, []string{"small", "large"}, inst.SizeNames)
	assert.Equal(t, 45.0, inst.CF.AtVec(1))
}

func TestLoadInstance_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("demand_idx: 0.03\n"), 0666))

	_, err := LoadInstance(path, 0, 0)
	assert.ErrorAs(t, err, new(*InputDataError))
}
