package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tractcut",
	Short: "Population-constrained region carving",
	Long:  "Computes, for a grid of surface-tension values, the minimum-area, minimum-boundary subset of tracts holding a target share of total population, and exports the selections as TopoJSON.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
