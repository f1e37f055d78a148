package saa

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xzxcessarr/SAA-Solver/src/clustering"
	"github.com/xzxcessarr/SAA-Solver/src/lp"
)

type SolverConfig struct {
	Name        string        `yaml:"name"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	// ExactTimeout bounds the full-population solve.
	ExactTimeout    time.Duration `yaml:"exact_timeout"`
	IntegerRecourse bool          `yaml:"integer_recourse"`
	MaxNodes        int           `yaml:"max_nodes"`
	MIPGap          float64       `yaml:"mip_gap"`
	Threads         int           `yaml:"threads"`
	Verbose         bool          `yaml:"verbose"`
}

func (c SolverConfig) Options() lp.Options {
	return lp.Options{
		TimeLimit: c.Timeout,
		Threads:   c.Threads,
		MIPGap:    c.MIPGap,
		MaxNodes:  c.MaxNodes,
		Verbose:   c.Verbose,
	}
}

// SolveOptions returns the per-replication retry settings.
func (c SolverConfig) SolveOptions() SolveOptions {
	return SolveOptions{
		Policy:          lp.RetryPolicy{MaxAttempts: c.MaxAttempts, Timeout: c.Timeout},
		IntegerRecourse: c.IntegerRecourse,
	}
}

// ExactOptions returns the retry settings of the full-population solve.
func (c SolverConfig) ExactOptions() SolveOptions {
	opts := c.SolveOptions()
	opts.Policy.Timeout = c.ExactTimeout
	return opts
}

// Config is fixed for the lifetime of a Solver.
type Config struct {
	// Locations and Scenarios truncate the repository; zero keeps all.
	Locations    int `yaml:"locations"`
	Scenarios    int `yaml:"scenarios"`
	Replications int `yaml:"replications"`
	// SampleSize is the stratified target K.
	SampleSize int `yaml:"sample_size"`

	Reduction  clustering.ReductionConfig `yaml:"reduction"`
	Clustering clustering.Config          `yaml:"clustering"`
	Sampling   SamplingConfig             `yaml:"sampling"`
	Solver     SolverConfig               `yaml:"solver"`

	// Workers bounds concurrent replications; zero uses the CPU core count.
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`
	// Patience stops the run after that many successful replications in a row
	// fail to improve the incumbent. Zero disables early stopping.
	Patience int `yaml:"patience"`
	// Reference is a known exact optimum; zero falls back to the mean sample
	// objective.
	Reference float64 `yaml:"reference"`
}

func DefaultConfig() Config {
	return Config{
		Replications: 10,
		SampleSize:   10,
		Reduction:    clustering.ReductionConfig{Method: "pca", VarianceRatio: 0.99},
		Clustering:   clustering.Config{Method: "kmeans", Clusters: 10, MaxIter: 300},
		Sampling:     SamplingConfig{Method: "stratified", Noise: NoiseStratum},
		Solver: SolverConfig{
			Name:         "highs",
			MaxAttempts:  3,
			Timeout:      5 * time.Minute,
			ExactTimeout: 30 * time.Minute,
		},
	}
}

// LoadConfig overlays a YAML file on DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, &InputDataError{Field: path, Reason: err.Error()}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Locations < 0:
		return inputErrorf("locations", "must not be negative, got %d", c.Locations)
	case c.Scenarios < 0:
		return inputErrorf("scenarios", "must not be negative, got %d", c.Scenarios)
	case c.Replications < 1:
		return inputErrorf("replications", "must be positive, got %d", c.Replications)
	case c.SampleSize < 1 && c.Sampling.Method != "simple":
		return inputErrorf("sample_size", "must be positive, got %d", c.SampleSize)
	case c.Workers < 0:
		return inputErrorf("workers", "must not be negative, got %d", c.Workers)
	case c.Patience < 0:
		return inputErrorf("patience", "must not be negative, got %d", c.Patience)
	case c.Reference < 0:
		return inputErrorf("reference", "must not be negative, got %g", c.Reference)
	case !clustering.ValidReducers[c.Reduction.Method]:
		return inputErrorf("reduction.method", "unknown method %q", c.Reduction.Method)
	case !clustering.ValidClusterers[c.Clustering.Method]:
		return inputErrorf("clustering.method", "unknown method %q", c.Clustering.Method)
	case !ValidSamplers[c.Sampling.Method]:
		return inputErrorf("sampling.method", "unknown method %q", c.Sampling.Method)
	case !ValidNoisePolicies[c.Sampling.Noise]:
		return inputErrorf("sampling.noise", "unknown policy %q", c.Sampling.Noise)
	case c.Solver.Name == "":
		return inputErrorf("solver.name", "must be set")
	case c.Solver.MaxAttempts < 1:
		return inputErrorf("solver.max_attempts", "must be positive, got %d", c.Solver.MaxAttempts)
	case c.Solver.Timeout < 0 || c.Solver.ExactTimeout < 0:
		return inputErrorf("solver.timeout", "must not be negative")
	case c.Solver.MIPGap < 0:
		return inputErrorf("solver.mip_gap", "must not be negative, got %g", c.Solver.MIPGap)
	}
	return nil
}

// MethodName labels a run as <reduction>_<clustering>_<sampling>.
func (c Config) MethodName() string {
	return fmt.Sprintf("%s_%s_%s", c.Reduction.Method, c.Clustering.Method, c.Sampling.Method)
}
