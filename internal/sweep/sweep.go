// Package sweep runs the μ search once per λ in a configured grid. Each
// λ is independent: it reads the shared immutable GraphData and nothing
// else, so entries may run concurrently without locking.
package sweep

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/search"
	"github.com/halfamerica/tractcut/internal/solver"
)

// Config controls one sweep.
type Config struct {
	Lambdas        []float64
	TargetFraction float64
	Tolerance      float64
	MaxIterations  int

	// Workers caps concurrent λ solves; 0 means NumCPU.
	Workers int

	// FailFast aborts the whole sweep on the first non-converged λ.
	// Otherwise the failure is recorded in its entry and the sweep
	// continues.
	FailFast bool
}

// Run executes the sweep. The result is a pure function of (GraphData,
// Config): per-λ outcomes are identical whether entries run sequentially
// or in parallel.
func Run(ctx context.Context, gd *model.GraphData, s solver.Solver, cfg Config) (*model.SweepResult, error) {
	if err := ValidateLambdas(cfg.Lambdas); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log := zap.L().With(zap.String("component", "sweep"))
	log.Info("starting lambda sweep",
		zap.Int("lambdas", len(cfg.Lambdas)),
		zap.Int("workers", workers),
		zap.Bool("fail_fast", cfg.FailFast),
	)

	entries := make([]model.LambdaEntry, len(cfg.Lambdas))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, lambda := range cfg.Lambdas {
		g.Go(func() error {
			entry := runLambda(gctx, gd, s, lambda, cfg)
			entries[i] = entry

			if entry.Error != "" {
				log.Warn("lambda entry failed",
					zap.Float64("lambda", lambda),
					zap.String("error", entry.Error),
				)
				if cfg.FailFast {
					if entry.Search != nil && !entry.Search.Converged {
						return &model.ConvergenceError{
							Lambda:       lambda,
							Iterations:   entry.Search.Iterations,
							BestFraction: entry.Search.Result.PopulationFraction,
						}
					}
					return eris.New(entry.Error)
				}
				return nil
			}

			log.Info("lambda solved",
				zap.Float64("lambda", lambda),
				zap.Float64("fraction", entry.Search.Result.PopulationFraction),
				zap.Float64("mu", entry.Search.Result.Mu),
				zap.Int("iterations", entry.Search.Iterations),
				zap.Duration("elapsed", entry.Elapsed),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &model.SweepResult{
		Lambdas:      append([]float64(nil), cfg.Lambdas...),
		Entries:      entries,
		TotalElapsed: time.Since(start),
		AllConverged: true,
	}
	for i := range entries {
		if entries[i].Search != nil {
			result.TotalIterations += entries[i].Search.Iterations
		}
		if !entries[i].Succeeded {
			result.AllConverged = false
		}
	}

	log.Info("sweep complete",
		zap.Int("total_iterations", result.TotalIterations),
		zap.Duration("total_elapsed", result.TotalElapsed),
		zap.Bool("all_converged", result.AllConverged),
	)
	return result, nil
}

// runLambda solves one λ with timing. All failure modes land in the entry;
// the caller applies the sweep failure policy.
func runLambda(ctx context.Context, gd *model.GraphData, s solver.Solver, lambda float64, cfg Config) model.LambdaEntry {
	entry := model.LambdaEntry{Lambda: lambda}
	start := time.Now()

	sr, err := search.FindMu(ctx, gd, s, search.Options{
		Lambda:         lambda,
		TargetFraction: cfg.TargetFraction,
		Tolerance:      cfg.Tolerance,
		MaxIterations:  cfg.MaxIterations,
	})
	entry.Elapsed = time.Since(start)

	switch {
	case err != nil:
		entry.Error = err.Error()
	case !sr.Converged:
		entry.Search = sr
		entry.Error = (&model.ConvergenceError{
			Lambda:       lambda,
			Iterations:   sr.Iterations,
			BestFraction: sr.Result.PopulationFraction,
		}).Error()
	default:
		entry.Search = sr
		entry.Succeeded = true
	}
	return entry
}
