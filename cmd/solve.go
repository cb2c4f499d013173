package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/search"
	"github.com/halfamerica/tractcut/internal/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a single λ, searching μ for the target population fraction",
	Long: `Runs the binary search over μ at a single λ value and prints the
resulting selection statistics. Pass --mu to skip the search and solve one
fixed (λ, μ) point instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lambda, _ := cmd.Flags().GetFloat64("lambda")
		mu, _ := cmd.Flags().GetFloat64("mu")
		fixedMu := cmd.Flags().Changed("mu")

		gd, _, err := loadOrBuildGraph(ctx, st, false)
		if err != nil {
			return eris.Wrap(err, "solve")
		}

		log := zap.L().With(zap.String("command", "solve"), zap.Float64("lambda", lambda))

		if fixedMu {
			res, err := search.Solve(ctx, gd, solver.NewDinic(), lambda, mu)
			if err != nil {
				return eris.Wrap(err, "solve")
			}
			printSolveResult(res.Lambda, res.Mu, res.PopulationFraction, res.NumSelected(), res.SelectedArea, res.Energy)
			return nil
		}

		sr, err := search.FindMu(ctx, gd, solver.NewDinic(), search.Options{
			Lambda:         lambda,
			TargetFraction: cfg.Sweep.TargetFraction,
			Tolerance:      cfg.Sweep.Tolerance,
			MaxIterations:  cfg.Sweep.MaxIterations,
		})
		if err != nil {
			return eris.Wrap(err, "solve")
		}
		if !sr.Converged {
			log.Warn("search did not converge",
				zap.Int("iterations", sr.Iterations),
				zap.Float64("best_fraction", sr.Result.PopulationFraction),
			)
		}

		res := sr.Result
		printSolveResult(res.Lambda, res.Mu, res.PopulationFraction, res.NumSelected(), res.SelectedArea, res.Energy)
		fmt.Printf("  iterations: %d (converged: %v)\n", sr.Iterations, sr.Converged)
		return nil
	},
}

func printSolveResult(lambda, mu, fraction float64, numSelected int, area, energy float64) {
	fmt.Printf("λ=%.3f μ=%.6g\n", lambda, mu)
	fmt.Printf("  selected tracts:     %d\n", numSelected)
	fmt.Printf("  population fraction: %.4f\n", fraction)
	fmt.Printf("  selected area:       %.0f m²\n", area)
	fmt.Printf("  energy:              %.6g\n", energy)
}

func init() {
	solveCmd.Flags().Float64("lambda", 0.5, "surface-tension weight λ in [0, 1)")
	solveCmd.Flags().Float64("mu", 0, "fixed μ; skips the binary search when set")
	rootCmd.AddCommand(solveCmd)
}
