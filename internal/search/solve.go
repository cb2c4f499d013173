// Package search tunes the Lagrange multiplier μ so that a min-cut
// selection hits a target population fraction, for one fixed λ.
package search

import (
	"context"

	"github.com/halfamerica/tractcut/internal/graph"
	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/solver"
)

// Solve runs one (λ, μ) optimization: build the flow network, cut it, and
// derive selection statistics. GraphData is read-only throughout.
func Solve(ctx context.Context, gd *model.GraphData, s solver.Solver, lambda, mu float64) (*model.OptimizationResult, error) {
	net, err := graph.BuildNetwork(gd, graph.Params{Lambda: lambda, Mu: mu})
	if err != nil {
		return nil, err
	}

	part, flowValue, err := s.MinCut(ctx, net)
	if err != nil {
		return nil, err
	}

	res := &model.OptimizationResult{
		Selected:        []bool(part),
		TotalPopulation: gd.TotalPopulation,
		TotalArea:       gd.TotalArea,
		Lambda:          lambda,
		Mu:              mu,
		FlowValue:       flowValue,
	}
	for i := range gd.Areas {
		if part[i] {
			res.SelectedPopulation += gd.Areas[i].Population
			res.SelectedArea += gd.Areas[i].LandArea
		}
	}
	res.PopulationFraction = float64(res.SelectedPopulation) / float64(gd.TotalPopulation)
	res.Energy = graph.Energy(gd, part, lambda, mu)

	return res, nil
}
