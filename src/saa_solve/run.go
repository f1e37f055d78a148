package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xzxcessarr/SAA-Solver/src/clustering"
	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

var (
	configPath       string
	outputPath       string
	withExact        bool
	locations        int
	scenarios        int
	replications     int
	sampleSize       int
	reduction        string
	clusteringMethod string
	clusters         int
	sampling         string
	solverName       string
	maxAttempts      int
	timeout          time.Duration
	exactTimeout     time.Duration
	workers          int
	seed             int64
	patience         int
	reference        float64
)

var runCmd = &cobra.Command{
	Use:   "run [instance files...]",
	Short: "Run the SAA replications on each instance",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, paths []string) {
		cfg := loadConfig(cmd)
		oracle := newOracle(cfg)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		for _, p := range paths {
			inst, err := saa.LoadInstance(p, cfg.Locations, cfg.Scenarios)
			if err != nil {
				logrus.Errorf("Instance %q: %v. Skipping...", p, err)
				continue
			}
			runCfg := cfg
			if withExact && runCfg.Reference == 0 {
				exact, elapsed, err := saa.SolveExact(ctx, inst, oracle, cfg.Solver.ExactOptions())
				if err != nil {
					logrus.Errorf("Exact solve of %q: %v", p, err)
				} else {
					logrus.Infof("Exact optimum %.4f found in %v", exact.Objective, elapsed)
					runCfg.Reference = exact.Objective
				}
			}

			reducer, err := clustering.NewReducer(runCfg.Reduction)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			clusterer, err := clustering.NewClusterer(runCfg.Clustering)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			solver, err := saa.NewSolver(runCfg, inst, oracle, reducer, clusterer)
			if err != nil {
				logrus.Fatalf("%v", err)
			}

			fmt.Printf("Solving %v...\n", p)
			res, err := solver.Run(ctx)
			if err != nil {
				logrus.Errorf("Instance %q: %v", p, err)
				continue
			}
			fmt.Printf("Instance %v:\n%v\n", p, res)
			if outputPath != "" {
				if err := saa.SaveResult(outputPath, res); err != nil {
					logrus.Errorf("Saving result: %v", err)
				}
			}
			fmt.Println()
		}
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&outputPath, "output", "", "Append results to this .xlsx workbook")
	flags.BoolVar(&withExact, "exact", false, "Solve the full model first and use its optimum as gap reference")
	flags.IntVar(&locations, "locations", 0, "Number of locations to keep (0 keeps all)")
	flags.IntVar(&scenarios, "scenarios", 0, "Number of scenarios to keep (0 keeps all)")
	flags.IntVar(&replications, "replications", 10, "Number of SAA replications")
	flags.IntVar(&sampleSize, "sample-size", 10, "Target number of scenarios per sample")
	flags.StringVar(&reduction, "reduction", "pca", "Dimensionality reduction (pca, none)")
	flags.StringVar(&clusteringMethod, "clustering", "kmeans", "Clustering method (kmeans, dbscan)")
	flags.IntVar(&clusters, "clusters", 10, "Number of k-means clusters")
	flags.StringVar(&sampling, "sampling", "stratified", "Sampling method (stratified, simple)")
	flags.IntVar(&workers, "workers", 0, "Concurrent replications (0 uses the CPU core count)")
	flags.IntVar(&patience, "patience", 0, "Stop after this many replications without improvement (0 disables)")
	flags.Float64Var(&reference, "reference", 0, "Known optimum used as gap reference")
	addSolverFlags(flags)
}
