package saa

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// DefaultDemandIndex converts affected population into demand units.
const DefaultDemandIndex = 0.03

const probabilityTol = 1e-6

type FacilitySize struct {
	Name      string  `yaml:"name"`
	FixedCost float64 `yaml:"fixed_cost"`
	Capacity  float64 `yaml:"capacity"`
}

type Commodity struct {
	Name      string  `yaml:"name"`
	Volume    float64 `yaml:"volume"`
	Price     float64 `yaml:"price"`
	Transport float64 `yaml:"transport"`
	Holding   float64 `yaml:"holding"`
	Penalty   float64 `yaml:"penalty"`
	// DemandScale multiplies the raw scenario demand for this commodity.
	DemandScale float64 `yaml:"demand_scale"`
}

// InstanceData is the on-disk scenario repository.
type InstanceData struct {
	FacilitySizes []FacilitySize `yaml:"facility_sizes"`
	Commodities   []Commodity    `yaml:"commodities"`
	Distance      [][]float64    `yaml:"distance"`
	// Scenarios holds one raw demand row (affected population) per scenario.
	Scenarios     [][]float64 `yaml:"scenarios"`
	Probabilities []float64   `yaml:"probabilities,omitempty"`
	DemandIndex   float64     `yaml:"demand_index"`
}

// Instance is the validated, read-only view of a scenario repository.
type Instance struct {
	IS, AS, LS, NS int

	CF, U             *mat.VecDense
	V, CP, CT, CH, PU *mat.VecDense

	// H is the IS×IS distance matrix.
	H *mat.Dense
	// Demand is the NS×IS base demand used for clustering.
	Demand *mat.Dense
	// D holds one AS×IS commodity demand matrix per scenario.
	D  []*mat.Dense
	Pr []float64

	SizeNames      []string
	CommodityNames []string

	scales []float64
}

// ReadInstanceData parses a repository file, rejecting unknown keys.
func ReadInstanceData(path string) (*InstanceData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario data: %w", err)
	}
	var data InstanceData
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&data); err != nil {
		return nil, &InputDataError{Field: path, Reason: err.Error()}
	}
	return &data, nil
}

// WriteInstanceData stores a repository file.
func WriteInstanceData(path string, data *InstanceData) error {
	buf := new(bytes.Buffer)
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding scenario data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoding scenario data: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0666)
}

// LoadInstance reads a repository file and keeps its first locations
// locations and first scenarios scenarios. Zero keeps everything.
func LoadInstance(path string, locations, scenarios int) (*Instance, error) {
	data, err := ReadInstanceData(path)
	if err != nil {
		return nil, err
	}
	return NewInstance(data, locations, scenarios)
}

// NewInstance validates data and derives the demand tensors.
func NewInstance(data *InstanceData, locations, scenarios int) (*Instance, error) {
	if len(data.FacilitySizes) == 0 {
		return nil, inputErrorf("facility_sizes", "at least one facility size is required")
	}
	if len(data.Commodities) == 0 {
		return nil, inputErrorf("commodities", "at least one commodity is required")
	}
	is := len(data.Distance)
	if locations > 0 {
		if locations > is {
			return nil, inputErrorf("distance", "%d locations requested but the matrix has %d rows", locations, is)
		}
		is = locations
	}
	if is == 0 {
		return nil, inputErrorf("distance", "no locations")
	}
	ns := len(data.Scenarios)
	if scenarios > 0 {
		if scenarios > ns {
			return nil, inputErrorf("scenarios", "%d scenarios requested but only %d are available", scenarios, ns)
		}
		ns = scenarios
	}
	if ns == 0 {
		return nil, inputErrorf("scenarios", "no scenarios")
	}
	index := data.DemandIndex
	if index <= 0 || math.IsInf(index, 0) || math.IsNaN(index) {
		return nil, inputErrorf("demand_index", "must be positive, got %g", index)
	}

	inst := &Instance{
		IS: is,
		AS: len(data.Commodities),
		LS: len(data.FacilitySizes),
		NS: ns,
	}
	if err := inst.loadFacilities(data.FacilitySizes); err != nil {
		return nil, err
	}
	if err := inst.loadCommodities(data.Commodities); err != nil {
		return nil, err
	}
	if err := inst.loadDistance(data.Distance); err != nil {
		return nil, err
	}
	raw, err := inst.rawDemand(data.Scenarios)
	if err != nil {
		return nil, err
	}
	inst.deriveDemand(raw, index)
	if inst.Pr, err = normalizeProbabilities(data.Probabilities, ns); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"locations":   inst.IS,
		"commodities": inst.AS,
		"sizes":       inst.LS,
		"scenarios":   inst.NS,
	}).Debug("Scenario data loaded")
	return inst, nil
}

func nonNegative(field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return inputErrorf(field, "must be a finite non-negative number, got %g", v)
	}
	return nil
}

func (inst *Instance) loadFacilities(sizes []FacilitySize) error {
	inst.CF = mat.NewVecDense(inst.LS, nil)
	inst.U = mat.NewVecDense(inst.LS, nil)
	inst.SizeNames = make([]string, inst.LS)
	for l, f := range sizes {
		field := fmt.Sprintf("facility_sizes[%d]", l)
		if err := nonNegative(field+".fixed_cost", f.FixedCost); err != nil {
			return err
		}
		if f.Capacity <= 0 || math.IsInf(f.Capacity, 0) {
			return inputErrorf(field+".capacity", "must be positive, got %g", f.Capacity)
		}
		inst.CF.SetVec(l, f.FixedCost)
		inst.U.SetVec(l, f.Capacity)
		inst.SizeNames[l] = f.Name
	}
	return nil
}

func (inst *Instance) loadCommodities(commodities []Commodity) error {
	vecs := []**mat.VecDense{&inst.V, &inst.CP, &inst.CT, &inst.CH, &inst.PU}
	for _, v := range vecs {
		*v = mat.NewVecDense(inst.AS, nil)
	}
	inst.CommodityNames = make([]string, inst.AS)
	inst.scales = make([]float64, inst.AS)
	for a, c := range commodities {
		field := fmt.Sprintf("commodities[%d]", a)
		if c.Volume <= 0 || math.IsInf(c.Volume, 0) {
			return inputErrorf(field+".volume", "must be positive, got %g", c.Volume)
		}
		if c.DemandScale <= 0 || math.IsInf(c.DemandScale, 0) {
			return inputErrorf(field+".demand_scale", "must be positive, got %g", c.DemandScale)
		}
		for name, v := range map[string]float64{"price": c.Price, "transport": c.Transport, "holding": c.Holding, "penalty": c.Penalty} {
			if err := nonNegative(field+"."+name, v); err != nil {
				return err
			}
		}
		inst.V.SetVec(a, c.Volume)
		inst.CP.SetVec(a, c.Price)
		inst.CT.SetVec(a, c.Transport)
		inst.CH.SetVec(a, c.Holding)
		inst.PU.SetVec(a, c.Penalty)
		inst.CommodityNames[a] = c.Name
		inst.scales[a] = c.DemandScale
	}
	return nil
}

func (inst *Instance) loadDistance(rows [][]float64) error {
	for i := range inst.IS {
		if len(rows[i]) < inst.IS {
			return inputErrorf(fmt.Sprintf("distance[%d]", i), "has %d entries, need %d", len(rows[i]), inst.IS)
		}
	}
	inst.H = mat.NewDense(inst.IS, inst.IS, nil)
	for i := range inst.IS {
		for j := range inst.IS {
			v := rows[i][j]
			if err := nonNegative(fmt.Sprintf("distance[%d][%d]", i, j), v); err != nil {
				return err
			}
			if math.Abs(v-rows[j][i]) > 1e-9 {
				return inputErrorf(fmt.Sprintf("distance[%d][%d]", i, j), "matrix is not symmetric (%g vs %g)", v, rows[j][i])
			}
			inst.H.Set(i, j, v)
		}
	}
	return nil
}

func (inst *Instance) rawDemand(rows [][]float64) (*mat.Dense, error) {
	raw := mat.NewDense(inst.NS, inst.IS, nil)
	for s := range inst.NS {
		if len(rows[s]) < inst.IS {
			return nil, inputErrorf(fmt.Sprintf("scenarios[%d]", s), "has %d entries, need %d", len(rows[s]), inst.IS)
		}
		for i := range inst.IS {
			if err := nonNegative(fmt.Sprintf("scenarios[%d][%d]", s, i), rows[s][i]); err != nil {
				return nil, err
			}
		}
		raw.SetRow(s, rows[s][:inst.IS])
	}
	return raw, nil
}

// deriveDemand fills Demand and D. Every product is rounded half to even, and
// a commodity scale of exactly 1 reuses the raw demand unrounded.
func (inst *Instance) deriveDemand(raw *mat.Dense, index float64) {
	inst.Demand = mat.NewDense(inst.NS, inst.IS, nil)
	inst.Demand.Apply(func(_, _ int, v float64) float64 { return math.RoundToEven(v * index) }, raw)

	scaled := make([]*mat.Dense, inst.AS)
	for a := range inst.AS {
		scale := inst.scales[a]
		if scale == 1 {
			scaled[a] = raw
			continue
		}
		scaled[a] = mat.NewDense(inst.NS, inst.IS, nil)
		scaled[a].Apply(func(_, _ int, v float64) float64 { return math.RoundToEven(v * scale) }, raw)
	}

	inst.D = make([]*mat.Dense, inst.NS)
	for s := range inst.NS {
		d := mat.NewDense(inst.AS, inst.IS, nil)
		for a := range inst.AS {
			row := d.RawRowView(a)
			copy(row, scaled[a].RawRowView(s))
			for i, v := range row {
				row[i] = math.RoundToEven(v * index)
			}
		}
		inst.D[s] = d
	}
}

func normalizeProbabilities(pr []float64, ns int) ([]float64, error) {
	if len(pr) == 0 {
		uniform := make([]float64, ns)
		for s := range uniform {
			uniform[s] = 1 / float64(ns)
		}
		return uniform, nil
	}
	if len(pr) < ns {
		return nil, inputErrorf("probabilities", "has %d entries, need %d", len(pr), ns)
	}
	out := make([]float64, ns)
	copy(out, pr[:ns])
	for s, p := range out {
		if err := nonNegative(fmt.Sprintf("probabilities[%d]", s), p); err != nil {
			return nil, err
		}
	}
	sum := floats.Sum(out)
	if sum <= 0 {
		return nil, inputErrorf("probabilities", "sum to zero")
	}
	if len(pr) == ns {
		if math.Abs(sum-1) > probabilityTol {
			return nil, inputErrorf("probabilities", "sum to %g, not 1", sum)
		}
		return out, nil
	}
	// A truncated population is renormalized.
	floats.Scale(1/sum, out)
	return out, nil
}
