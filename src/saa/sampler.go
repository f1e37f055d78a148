package saa

import (
	"fmt"
	"math"
	"math/rand"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NoisePolicy decides what happens to scenarios with a negative cluster label.
type NoisePolicy string

const (
	// NoiseStratum pools every noise scenario into one extra stratum.
	NoiseStratum NoisePolicy = "stratum"
	// NoiseExclude drops noise scenarios from sampling.
	NoiseExclude NoisePolicy = "exclude"
)

var (
	ValidSamplers      = map[string]bool{"stratified": true, "simple": true}
	ValidNoisePolicies = map[NoisePolicy]bool{NoiseStratum: true, NoiseExclude: true}
)

type SamplingConfig struct {
	Method string      `yaml:"method"`
	Noise  NoisePolicy `yaml:"noise"`
}

// Strata groups scenario indices by dense label 0..k-1.
type Strata struct {
	// Labels maps each scenario to its stratum, or -1 when excluded.
	Labels  []int
	Members [][]int
}

func (st *Strata) Count() int {
	return len(st.Members)
}

// NormalizeLabels turns arbitrary clustering labels into dense strata ordered
// by original label value. Negative labels are noise and are handled
// according to policy.
func NormalizeLabels(labels []int, policy NoisePolicy) (*Strata, error) {
	if !ValidNoisePolicies[policy] {
		return nil, fmt.Errorf("unknown noise policy %q", policy)
	}
	byLabel := make(map[int][]int)
	var noise []int
	for s, l := range labels {
		if l < 0 {
			noise = append(noise, s)
			continue
		}
		byLabel[l] = append(byLabel[l], s)
	}

	keys := maps.Keys(byLabel)
	slices.Sort(keys)
	st := &Strata{Labels: make([]int, len(labels))}
	for s := range st.Labels {
		st.Labels[s] = -1
	}
	add := func(members []int) {
		for _, s := range members {
			st.Labels[s] = len(st.Members)
		}
		st.Members = append(st.Members, members)
	}
	for _, k := range keys {
		add(byLabel[k])
	}
	if len(noise) > 0 {
		switch policy {
		case NoiseStratum:
			add(noise)
		case NoiseExclude:
			logrus.WithField("scenarios", len(noise)).Debug("Noise scenarios excluded from sampling")
		}
	}
	if st.Count() == 0 {
		return nil, fmt.Errorf("%w: no scenario left to sample from", ErrSamplingDegenerate)
	}
	return st, nil
}

// Sampler draws one replication's scenario subset.
type Sampler interface {
	Name() string
	Sample(rng *rand.Rand, demand *mat.Dense, strata *Strata, k int) (Sample, error)
}

func NewSampler(cfg SamplingConfig) (Sampler, error) {
	switch cfg.Method {
	case "stratified":
		return StratifiedSampler{}, nil
	case "simple":
		return SimpleSampler{}, nil
	}
	return nil, fmt.Errorf("unknown sampling method %q; valid: stratified, simple", cfg.Method)
}

// Dispersion returns the root-mean-square distance of the member rows from
// their mean.
func Dispersion(demand *mat.Dense, members []int) float64 {
	_, cols := demand.Dims()
	mean := make([]float64, cols)
	for _, s := range members {
		floats.Add(mean, demand.RawRowView(s))
	}
	floats.Scale(1/float64(len(members)), mean)
	sq := 0.0
	diff := make([]float64, cols)
	for _, s := range members {
		floats.SubTo(diff, demand.RawRowView(s), mean)
		sq += floats.Dot(diff, diff)
	}
	return math.Sqrt(sq / float64(len(members)))
}

// StratifiedSampler allocates draws to strata in proportion to size times
// dispersion.
type StratifiedSampler struct{}

func (StratifiedSampler) Name() string {
	return "stratified"
}

// Allocate returns the number of scenarios to draw from each stratum.
func (StratifiedSampler) Allocate(demand *mat.Dense, strata *Strata, k int) ([]int, error) {
	weight := make([]float64, strata.Count())
	for c, members := range strata.Members {
		weight[c] = Dispersion(demand, members) * float64(len(members))
	}
	total := floats.Sum(weight)
	if total == 0 {
		return nil, fmt.Errorf("%w: every stratum has zero dispersion", ErrSamplingDegenerate)
	}
	picks := make([]int, len(weight))
	for c, w := range weight {
		n := int(math.RoundToEven(float64(k) * w / total))
		if size := len(strata.Members[c]); n > size {
			logrus.WithFields(logrus.Fields{"stratum": c, "picks": n, "size": size}).Warn("Stratum smaller than its allocation, clamping")
			n = size
		}
		picks[c] = n
	}
	return picks, nil
}

func (ss StratifiedSampler) Sample(rng *rand.Rand, demand *mat.Dense, strata *Strata, k int) (Sample, error) {
	picks, err := ss.Allocate(demand, strata, k)
	if err != nil {
		return Sample{}, err
	}
	chosen := mapset.NewThreadUnsafeSet[int]()
	for c, n := range picks {
		members := strata.Members[c]
		switch {
		case n == 0:
		case n == 1:
			chosen.Add(members[rng.Intn(len(members))])
		default:
			for _, p := range rng.Perm(len(members))[:n] {
				chosen.Add(members[p])
			}
		}
	}
	if chosen.Cardinality() == 0 {
		return Sample{}, fmt.Errorf("%w: allocation of %d scenarios rounded to zero in every stratum", ErrSamplingDegenerate, k)
	}
	indices := chosen.ToSlice()
	slices.Sort(indices)
	return newSample(indices), nil
}

// SimpleSampler draws one scenario from every stratum and ignores k.
type SimpleSampler struct{}

func (SimpleSampler) Name() string {
	return "simple"
}

func (SimpleSampler) Sample(rng *rand.Rand, _ *mat.Dense, strata *Strata, _ int) (Sample, error) {
	indices := make([]int, 0, strata.Count())
	for _, members := range strata.Members {
		indices = append(indices, members[rng.Intn(len(members))])
	}
	slices.Sort(indices)
	return newSample(indices), nil
}
