package search

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/solver"
)

// Defaults for the μ bisection.
const (
	DefaultTargetFraction = 0.5
	DefaultTolerance      = 0.01
	DefaultMaxIterations  = 50

	// muHeadroom widens the auto-scaled upper bracket so the target
	// fraction is bracketed even for skewed population/area distributions.
	muHeadroom = 10.0
)

// Options configure one μ search. Zero values fall back to the defaults
// above; MuMax = 0 requests auto-scaling from the data magnitudes.
type Options struct {
	Lambda         float64
	TargetFraction float64
	Tolerance      float64
	MaxIterations  int
	MuMin          float64
	MuMax          float64
}

func (o *Options) normalize(gd *model.GraphData) {
	if o.TargetFraction == 0 {
		o.TargetFraction = DefaultTargetFraction
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MuMax == 0 {
		o.MuMax = EstimateMuMax(gd)
	}
}

// EstimateMuMax scales an upper bracket for μ from the data: μ·p_i must be
// able to dominate the normalized area cost a_i/ρ², so the bracket is the
// normalized area per person with headroom.
func EstimateMuMax(gd *model.GraphData) float64 {
	rhoSq := gd.Rho * gd.Rho
	return (gd.TotalArea / rhoSq) / float64(gd.TotalPopulation) * muHeadroom
}

// FindMu bisects μ until the selected population fraction is within
// tolerance of the target. It exploits the monotonicity precondition:
// selected population is non-decreasing in μ for a fixed λ.
//
// When the iteration budget is exhausted the best-seen result is returned
// with Converged=false and a nil error; the caller's failure policy
// decides whether that is fatal. A non-nil error means a precondition
// violation or a solver failure, not a search failure.
func FindMu(ctx context.Context, gd *model.GraphData, s solver.Solver, opts Options) (*model.SearchResult, error) {
	opts.normalize(gd)

	log := zap.L().With(
		zap.String("component", "search"),
		zap.Float64("lambda", opts.Lambda),
	)
	log.Debug("starting mu search",
		zap.Float64("target", opts.TargetFraction),
		zap.Float64("tolerance", opts.Tolerance),
		zap.Float64("mu_min", opts.MuMin),
		zap.Float64("mu_max", opts.MuMax),
	)

	muMin, muMax := opts.MuMin, opts.MuMax

	var best *model.OptimizationResult
	bestDiff := math.MaxFloat64
	history := make([]model.MuTrial, 0, opts.MaxIterations)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		mu := (muMin + muMax) / 2

		res, err := Solve(ctx, gd, s, opts.Lambda, mu)
		if err != nil {
			return nil, err
		}

		f := res.PopulationFraction
		history = append(history, model.MuTrial{Mu: mu, Fraction: f})

		diff := math.Abs(f - opts.TargetFraction)
		if diff < bestDiff {
			bestDiff = diff
			best = res
		}

		log.Debug("mu trial",
			zap.Int("iteration", iter+1),
			zap.Float64("mu", mu),
			zap.Float64("fraction", f),
		)

		if diff <= opts.Tolerance {
			log.Debug("converged", zap.Int("iterations", iter+1))
			return &model.SearchResult{
				Result:     *res,
				Iterations: iter + 1,
				History:    history,
				Converged:  true,
			}, nil
		}

		if f < opts.TargetFraction {
			muMin = mu // need more reward
		} else {
			muMax = mu
		}
	}

	log.Warn("mu search exhausted iteration budget",
		zap.Int("iterations", opts.MaxIterations),
		zap.Float64("best_fraction", best.PopulationFraction),
	)
	return &model.SearchResult{
		Result:     *best,
		Iterations: opts.MaxIterations,
		History:    history,
		Converged:  false,
	}, nil
}
