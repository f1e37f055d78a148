package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xzxcessarr/SAA-Solver/src/generator"
	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

var (
	genOut    string
	genConfig = generator.DefaultConfig()
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic hurricane scenario repository",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := generator.Generate(genConfig)
		if err != nil {
			logrus.Fatalf("Generating instance: %v", err)
		}
		if err := saa.WriteInstanceData(genOut, data); err != nil {
			logrus.Fatalf("Writing %s: %v", genOut, err)
		}
		logrus.Infof("Wrote %d cities and %d scenarios to %s", genConfig.Cities, genConfig.Scenarios, genOut)
	},
}

func init() {
	flags := generateCmd.Flags()
	flags.StringVar(&genOut, "out", "instance.yaml", "The output file")
	flags.IntVar(&genConfig.Cities, "cities", genConfig.Cities, "The number of cities")
	flags.IntVar(&genConfig.Scenarios, "scenarios", genConfig.Scenarios, "The number of hurricane scenarios")
	flags.Float64Var(&genConfig.MinDistance, "min-distance", genConfig.MinDistance, "Minimum distance between cities")
	flags.Float64Var(&genConfig.MaxDistance, "max-distance", genConfig.MaxDistance, "Maximum distance between cities")
	flags.IntVar(&genConfig.MinPopulation, "min-population", genConfig.MinPopulation, "Minimum city population")
	flags.IntVar(&genConfig.MaxPopulation, "max-population", genConfig.MaxPopulation, "Maximum city population")
	flags.BoolVar(&genConfig.Realistic, "realistic", genConfig.Realistic, "Derive damage from the distance to the landing city")
	flags.Float64Var(&genConfig.DemandIndex, "demand-index", genConfig.DemandIndex, "Demand units per affected person")
	flags.Int64Var(&genConfig.Seed, "seed", 0, "Random seed")
}
