package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/model"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the μ search across the full λ grid",
	Long: `Solves every λ on the configured grid in parallel and caches the
results keyed by (graph, sweep configuration). A later run with the same
shapefile and settings reuses the cache; pass --force to recompute.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		force, _ := cmd.Flags().GetBool("force")

		gd, graphKey, err := loadOrBuildGraph(ctx, st, false)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		log := zap.L().With(zap.String("command", "sweep"))
		log.Info("starting sweep",
			zap.Int("tracts", gd.NumNodes()),
			zap.Bool("force", force),
		)

		sr, err := runOrLoadSweep(ctx, st, gd, graphKey, force)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		printSweepSummary(sr)
		return nil
	},
}

func printSweepSummary(sr *model.SweepResult) {
	fmt.Printf("%-8s %-10s %-12s %-10s %-6s %s\n",
		"λ", "μ", "fraction", "selected", "iters", "status")
	for _, e := range sr.Entries {
		if !e.Succeeded {
			fmt.Printf("%-8.3f %-10s %-12s %-10s %-6s failed: %s\n",
				e.Lambda, "-", "-", "-", "-", e.Error)
			continue
		}
		res := e.Search.Result
		status := "ok"
		if !e.Search.Converged {
			status = "not converged"
		}
		fmt.Printf("%-8.3f %-10.4g %-12.4f %-10d %-6d %s\n",
			e.Lambda, res.Mu, res.PopulationFraction, res.NumSelected(),
			e.Search.Iterations, status)
	}
	fmt.Printf("total: %d μ iterations in %s\n", sr.TotalIterations, sr.TotalElapsed)
}

func init() {
	sweepCmd.Flags().Bool("force", false, "recompute even if a cached sweep exists")
	rootCmd.AddCommand(sweepCmd)
}
