package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

func TestDistanceMatrix_SymmetricIntegralInRange(t *testing.T) {
	h := DistanceMatrix(rand.New(rand.NewSource(1)), 6, 100, 1000)
	for i := range h {
		assert.Zero(t, h[i][i])
		for j := range h {
			assert.Equal(t, h[i][j], h[j][i])
			if i != j {
				assert.GreaterOrEqual(t, h[i][j], 100.0)
				assert.LessOrEqual(t, h[i][j], 1000.0)
				assert.Equal(t, float64(int(h[i][j])), h[i][j])
			}
		}
	}
}

func TestDamageFactor_Bands(t *testing.T) {
	assert.Equal(t, 1.0, DamageFactor(0))
	assert.Equal(t, 1.0, DamageFactor(200))
	assert.Equal(t, 0.8, DamageFactor(201))
	assert.Equal(t, 0.5, DamageFactor(500))
	assert.Equal(t, 0.0, DamageFactor(501))
}

func TestAffectedPopulations_LandingCityFullyHit(t *testing.T) {
	cfg := Config{Cities: 3, Scenarios: 30, Realistic: true}
	pop := []float64{1000, 1000, 1000}
	far := [][]float64{{0, 900, 900}, {900, 0, 900}, {900, 900, 0}}

	rows := AffectedPopulations(rand.New(rand.NewSource(5)), cfg, pop, far)
	require.Len(t, rows, 30)
	for _, row := range rows {
		top, others := 0.0, 0
		for _, v := range row {
			if v > top {
				top = v
			}
		}
		for _, v := range row {
			if v < top {
				others++
			}
		}
		// The landing city gets the full distance factor, the others none.
		assert.Equal(t, 2, others)
		assert.GreaterOrEqual(t, top, 600.0)
	}
}

func TestAffectedPopulations_UnrealisticHitsSomeCities(t *testing.T) {
	cfg := Config{Cities: 5, Scenarios: 20}
	pop := []float64{100, 100, 100, 100, 100}
	rows := AffectedPopulations(rand.New(rand.NewSource(2)), cfg, pop, nil)
	for _, row := range rows {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestGenerate_LoadsAsInstance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cities = 4
	cfg.Scenarios = 12
	cfg.Seed = 9

	data, err := Generate(cfg)
	require.NoError(t, err)
	inst, err := saa.NewInstance(data, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, inst.IS)
	assert.Equal(t, 12, inst.NS)
	assert.Equal(t, 3, inst.AS)
	assert.Equal(t, 3, inst.LS)

	again, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, data.Scenarios, again.Scenarios)
}

func TestGenerate_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cities = 1
	_, err := Generate(cfg)
	assert.Error(t, err)
}
