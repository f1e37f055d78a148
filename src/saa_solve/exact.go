package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xzxcessarr/SAA-Solver/src/saa"
)

var exactCmd = &cobra.Command{
	Use:   "exact [instance files...]",
	Short: "Solve the two-stage model over every scenario",
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
			fmt.Printf("Solving %v...\n", p)
			exact, elapsed, err := saa.SolveExact(ctx, inst, oracle, cfg.Solver.ExactOptions())
			if err != nil {
				logrus.Errorf("Instance %q: %v", p, err)
				continue
			}
			fmt.Printf("Instance %v (IS=%d, NS=%d) solved in %v:\n", p, inst.IS, inst.NS, elapsed)
			fmt.Printf("Objective: %s\n%v\n\n", exact.Costs, &exact.Decision)
		}
	},
}

func addSolverFlags(flags *pflag.FlagSet) {
	flags.StringVar(&solverName, "solver", "highs", "Optimization backend (highs, lpsolve, simplex)")
	flags.IntVar(&maxAttempts, "max-attempts", 3, "Solve attempts per model")
	flags.DurationVar(&timeout, "timeout", 0, "Time limit per subproblem solve")
	flags.DurationVar(&exactTimeout, "exact-timeout", 0, "Time limit of the full-population solve")
	flags.Int64Var(&seed, "seed", 0, "Random seed")
}

func init() {
	flags := exactCmd.Flags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.IntVar(&locations, "locations", 0, "Number of locations to keep (0 keeps all)")
	flags.IntVar(&scenarios, "scenarios", 0, "Number of scenarios to keep (0 keeps all)")
	addSolverFlags(flags)
}
