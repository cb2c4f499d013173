package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/postprocess"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dissolve, simplify, and export a cached sweep as TopoJSON",
	Long: `Takes the cached sweep for the configured shapefile and settings,
dissolves each λ's selection into a MultiPolygon, simplifies it, reprojects
to geographic coordinates, and writes one TopoJSON file per λ plus a
combined multi-object file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		gd, graphKey, err := loadOrBuildGraph(ctx, st, false)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		// Export never recomputes; a missing sweep is computed once here
		// exactly as the sweep command would.
		sr, err := runOrLoadSweep(ctx, st, gd, graphKey, false)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		out, err := runExport(ctx, gd, sr)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		printExportSummary(out)
		return nil
	},
}

func runExport(ctx context.Context, gd *model.GraphData, sr *model.SweepResult) (*postprocess.Output, error) {
	return postprocess.Process(ctx, gd, sr, postprocess.Config{
		SimplifyTolerance: cfg.Post.SimplifyTolerance,
		Quantization:      cfg.Post.Quantization,
		OutputDir:         cfg.Post.OutputDir,
		Workers:           cfg.Sweep.Workers,
	})
}

func printExportSummary(out *postprocess.Output) {
	for _, exp := range out.Exports {
		fmt.Printf("wrote %s (λ=%.2f, %d bytes)\n", exp.Path, exp.LambdaValue, exp.FileSizeBytes)
	}
	if out.CombinedPath != "" {
		fmt.Printf("wrote %s\n", out.CombinedPath)
	}
	for lambda, msg := range out.Failed {
		zap.L().Warn("λ skipped during export",
			zap.Float64("lambda", lambda),
			zap.String("reason", msg),
		)
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
