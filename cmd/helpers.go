package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/graph"
	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/solver"
	"github.com/halfamerica/tractcut/internal/store"
	"github.com/halfamerica/tractcut/internal/sweep"
	"github.com/halfamerica/tractcut/internal/tract"
)

// openStore opens and migrates the cache database.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// lambdaGrid resolves the configured λ values: an explicit list wins,
// otherwise the evenly spaced grid is expanded.
func lambdaGrid() ([]float64, error) {
	if len(cfg.Sweep.Lambdas) > 0 {
		if err := sweep.ValidateLambdas(cfg.Sweep.Lambdas); err != nil {
			return nil, err
		}
		return cfg.Sweep.Lambdas, nil
	}
	return sweep.Grid(cfg.Sweep.LambdaStart, cfg.Sweep.LambdaStop, cfg.Sweep.LambdaStep)
}

// loadOrBuildGraph returns the graph for the configured shapefile, using
// the cache unless rebuild is set, and its cache key.
func loadOrBuildGraph(ctx context.Context, st *store.Store, rebuild bool) (*model.GraphData, string, error) {
	if cfg.Data.Shapefile == "" {
		return nil, "", eris.New("data.shapefile is not configured")
	}
	key, err := store.GraphKey(cfg.Data.Shapefile)
	if err != nil {
		return nil, "", err
	}

	if !rebuild {
		gd, found, err := st.LoadGraph(ctx, key)
		if err != nil {
			return nil, "", err
		}
		if found {
			zap.L().Info("using cached graph", zap.String("key", key[:12]))
			return gd, key, nil
		}
	}

	areas, err := tract.Load(cfg.Data.Shapefile, tract.LoadOptions{
		IDField:         cfg.Data.IDField,
		PopulationField: cfg.Data.PopulationField,
		AreaField:       cfg.Data.AreaField,
	})
	if err != nil {
		return nil, "", err
	}
	gd, err := graph.Build(areas)
	if err != nil {
		return nil, "", err
	}
	if err := st.SaveGraph(ctx, key, gd); err != nil {
		return nil, "", err
	}
	return gd, key, nil
}

// sweepConfig assembles the sweep configuration from the resolved grid.
func sweepConfig(lambdas []float64) sweep.Config {
	return sweep.Config{
		Lambdas:        lambdas,
		TargetFraction: cfg.Sweep.TargetFraction,
		Tolerance:      cfg.Sweep.Tolerance,
		MaxIterations:  cfg.Sweep.MaxIterations,
		Workers:        cfg.Sweep.Workers,
		FailFast:       cfg.Sweep.FailFast,
	}
}

// runOrLoadSweep returns the sweep result for (graph, config), computing
// and caching it on a miss.
func runOrLoadSweep(ctx context.Context, st *store.Store, gd *model.GraphData, graphKey string, force bool) (*model.SweepResult, error) {
	lambdas, err := lambdaGrid()
	if err != nil {
		return nil, err
	}
	scfg := sweepConfig(lambdas)
	configKey, err := store.ConfigKey(scfg)
	if err != nil {
		return nil, err
	}

	if !force {
		sr, found, err := st.LoadSweep(ctx, graphKey, configKey)
		if err != nil {
			return nil, err
		}
		if found {
			zap.L().Info("using cached sweep", zap.String("config_key", configKey[:12]))
			return sr, nil
		}
	}

	sr, err := sweep.Run(ctx, gd, solver.NewDinic(), scfg)
	if err != nil {
		return nil, err
	}
	if _, err := st.SaveSweep(ctx, graphKey, configKey, sr); err != nil {
		return nil, err
	}
	return sr, nil
}
