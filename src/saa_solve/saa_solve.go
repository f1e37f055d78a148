package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xzxcessarr/SAA-Solver/src/lp"
	_ "github.com/xzxcessarr/SAA-Solver/src/lp/highs"
	_ "github.com/xzxcessarr/SAA-Solver/src/lp/lpsolve"
	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "saa_solve",
	Short: "Sample average approximation for two-stage facility location",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.AddCommand(runCmd, exactCmd, generateCmd)
}

// loadConfig reads the config file when one is given and applies the flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) saa.Config {
	cfg := saa.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = saa.LoadConfig(configPath); err != nil {
			logrus.Fatalf("Config %s: %v", configPath, err)
		}
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("locations", func() { cfg.Locations = locations })
	set("scenarios", func() { cfg.Scenarios = scenarios })
	set("replications", func() { cfg.Replications = replications })
	set("sample-size", func() { cfg.SampleSize = sampleSize })
	set("reduction", func() { cfg.Reduction.Method = reduction })
	set("clustering", func() { cfg.Clustering.Method = clusteringMethod })
	set("clusters", func() { cfg.Clustering.Clusters = clusters })
	set("sampling", func() { cfg.Sampling.Method = sampling })
	set("solver", func() { cfg.Solver.Name = solverName })
	set("max-attempts", func() { cfg.Solver.MaxAttempts = maxAttempts })
	set("timeout", func() { cfg.Solver.Timeout = timeout })
	set("exact-timeout", func() { cfg.Solver.ExactTimeout = exactTimeout })
	set("workers", func() { cfg.Workers = workers })
	set("seed", func() { cfg.Seed = seed })
	set("patience", func() { cfg.Patience = patience })
	set("reference", func() { cfg.Reference = reference })
	if cfg.Clustering.Seed == 0 {
		cfg.Clustering.Seed = cfg.Seed
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func newOracle(cfg saa.Config) lp.Oracle {
	oracle, err := lp.New(cfg.Solver.Name, cfg.Solver.Options())
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return oracle
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
