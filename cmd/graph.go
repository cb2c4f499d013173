package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/graph"
	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/store"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and inspect the tract adjacency graph",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the adjacency graph from the configured shapefile",
	Long: `Reads the tract shapefile, derives queen-contiguity edges (shared
boundaries carry their length, corner touches count with length zero),
attaches islands to their nearest component, and caches the result keyed
by the shapefile's path, size, and modification time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rebuild, _ := cmd.Flags().GetBool("rebuild")

		log := zap.L().With(zap.String("command", "graph build"))
		log.Info("building adjacency graph",
			zap.String("shapefile", cfg.Data.Shapefile),
			zap.Bool("rebuild", rebuild),
		)

		gd, key, err := loadOrBuildGraph(ctx, st, rebuild)
		if err != nil {
			return eris.Wrap(err, "graph build")
		}

		printGraphSummary(gd, key)
		return nil
	},
}

var graphStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a cached graph exists for the configured shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		key, err := store.GraphKey(cfg.Data.Shapefile)
		if err != nil {
			return eris.Wrap(err, "graph status")
		}

		gd, found, err := st.LoadGraph(ctx, key)
		if err != nil {
			return eris.Wrap(err, "graph status")
		}
		if !found {
			fmt.Printf("No cached graph for %s\n", cfg.Data.Shapefile)
			return nil
		}

		printGraphSummary(gd, key)
		return nil
	},
}

func printGraphSummary(gd *model.GraphData, key string) {
	sum := graph.Summarize(gd)
	fmt.Printf("Graph %s\n", key[:12])
	fmt.Printf("  tracts:           %d\n", sum.NumNodes)
	fmt.Printf("  adjacency edges:  %d\n", sum.NumEdges)
	fmt.Printf("  total population: %d\n", sum.TotalPopulation)
	fmt.Printf("  total area:       %.1f km²\n", sum.TotalAreaSqkm)
	fmt.Printf("  rho:              %.2f m\n", sum.RhoMeters)
}

func init() {
	graphBuildCmd.Flags().Bool("rebuild", false, "rebuild even if a cached graph exists")
	graphCmd.AddCommand(graphBuildCmd)
	graphCmd.AddCommand(graphStatusCmd)
	rootCmd.AddCommand(graphCmd)
}
