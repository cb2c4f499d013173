package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "End-to-end: build graph, sweep λ, export TopoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rebuild, _ := cmd.Flags().GetBool("rebuild")
		force, _ := cmd.Flags().GetBool("force")

		log := zap.L().With(zap.String("command", "run"))

		gd, graphKey, err := loadOrBuildGraph(ctx, st, rebuild)
		if err != nil {
			return eris.Wrap(err, "run: graph")
		}
		log.Info("graph ready",
			zap.Int("tracts", gd.NumNodes()),
			zap.Int("edges", gd.NumEdges()),
		)

		sr, err := runOrLoadSweep(ctx, st, gd, graphKey, force)
		if err != nil {
			return eris.Wrap(err, "run: sweep")
		}
		printSweepSummary(sr)

		out, err := runExport(ctx, gd, sr)
		if err != nil {
			return eris.Wrap(err, "run: export")
		}
		printExportSummary(out)

		return nil
	},
}

func init() {
	runCmd.Flags().Bool("rebuild", false, "rebuild the graph even if cached")
	runCmd.Flags().Bool("force", false, "recompute the sweep even if cached")
	rootCmd.AddCommand(runCmd)
}
