package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/graph"
	"github.com/halfamerica/tractcut/internal/model"
	"github.com/halfamerica/tractcut/internal/solver"
)

// thresholdSolver selects a node whenever its source pull meets its sink
// pull, giving a monotone fraction staircase without coupling effects.
type thresholdSolver struct{}

func (thresholdSolver) MinCut(_ context.Context, net *graph.Network) (solver.Partition, float64, error) {
	part := make(solver.Partition, net.NumAreas)
	for i := 0; i < net.NumAreas; i++ {
		part[i] = net.SourceCaps[i] >= net.SinkCaps[i]
	}
	return part, 0, nil
}

func stepGraph() *model.GraphData {
	areas := []model.Area{
		{ID: "A", Population: 10, LandArea: 10000},
		{ID: "B", Population: 20, LandArea: 10000},
		{ID: "C", Population: 30, LandArea: 10000},
		{ID: "D", Population: 40, LandArea: 10000},
	}
	return &model.GraphData{
		Areas:           areas,
		Rho:             100,
		TotalPopulation: 100,
		TotalArea:       40000,
	}
}

func TestRun_AllLambdasConverge(t *testing.T) {
	gd := stepGraph()

	sr, err := Run(context.Background(), gd, thresholdSolver{}, Config{
		Lambdas:        []float64{0, 0.5, 0.9},
		TargetFraction: 0.4,
		Tolerance:      0.01,
	})
	require.NoError(t, err)

	require.Len(t, sr.Entries, 3)
	assert.True(t, sr.AllConverged)
	assert.Greater(t, sr.TotalIterations, 0)
	for _, e := range sr.Entries {
		assert.True(t, e.Succeeded, "λ=%g", e.Lambda)
		require.NotNil(t, e.Search)
		assert.InDelta(t, 0.4, e.Search.Result.PopulationFraction, 0.01)
	}
}

func TestRun_EntriesKeepGridOrder(t *testing.T) {
	gd := stepGraph()
	lambdas := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5}

	sr, err := Run(context.Background(), gd, thresholdSolver{}, Config{
		Lambdas:        lambdas,
		TargetFraction: 0.4,
		Tolerance:      0.01,
		Workers:        4,
	})
	require.NoError(t, err)

	require.Len(t, sr.Entries, len(lambdas))
	for i, e := range sr.Entries {
		assert.Equal(t, lambdas[i], e.Lambda)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	gd := stepGraph()
	cfg := Config{
		Lambdas:        []float64{0, 0.2, 0.4, 0.6, 0.8},
		TargetFraction: 0.7,
		Tolerance:      0.01,
	}

	cfg.Workers = 1
	seq, err := Run(context.Background(), gd, thresholdSolver{}, cfg)
	require.NoError(t, err)

	cfg.Workers = 8
	par, err := Run(context.Background(), gd, thresholdSolver{}, cfg)
	require.NoError(t, err)

	require.Len(t, par.Entries, len(seq.Entries))
	for i := range seq.Entries {
		s, p := seq.Entries[i], par.Entries[i]
		assert.Equal(t, s.Lambda, p.Lambda)
		assert.Equal(t, s.Succeeded, p.Succeeded)
		require.NotNil(t, s.Search)
		require.NotNil(t, p.Search)
		assert.Equal(t, s.Search.Result.Mu, p.Search.Result.Mu)
		assert.Equal(t, s.Search.Result.Selected, p.Search.Result.Selected)
		assert.Equal(t, s.Search.Iterations, p.Search.Iterations)
	}
	assert.Equal(t, seq.TotalIterations, par.TotalIterations)
}

func TestRun_FailFastAbortsOnNonConvergence(t *testing.T) {
	gd := stepGraph()

	// 0.5 sits between the reachable fractions 0.4 and 0.7.
	_, err := Run(context.Background(), gd, thresholdSolver{}, Config{
		Lambdas:        []float64{0.2},
		TargetFraction: 0.5,
		Tolerance:      0.01,
		MaxIterations:  8,
		FailFast:       true,
	})
	require.Error(t, err)

	var convErr *model.ConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 0.2, convErr.Lambda)
	assert.Equal(t, 8, convErr.Iterations)
}

func TestRun_RecordsFailureWithoutFailFast(t *testing.T) {
	gd := stepGraph()

	sr, err := Run(context.Background(), gd, thresholdSolver{}, Config{
		Lambdas:        []float64{0.2, 0.4},
		TargetFraction: 0.5,
		Tolerance:      0.01,
		MaxIterations:  8,
		FailFast:       false,
	})
	require.NoError(t, err)

	assert.False(t, sr.AllConverged)
	for _, e := range sr.Entries {
		assert.False(t, e.Succeeded)
		assert.NotEmpty(t, e.Error)
		require.NotNil(t, e.Search, "best-effort result is kept for diagnostics")
		assert.False(t, e.Search.Converged)
	}
}

func TestRun_InvalidLambdas(t *testing.T) {
	gd := stepGraph()

	_, err := Run(context.Background(), gd, thresholdSolver{}, Config{
		Lambdas: []float64{0.5, 1.0},
	})
	require.Error(t, err)
}

// square returns a closed 100m×100m polygon with lower-left corner (x, y).
func square(x, y float64) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{x, y}, {x + 100, y}, {x + 100, y + 100}, {x, y + 100}, {x, y},
	}})
	if err != nil {
		panic(err)
	}
	return p
}

// TestRun_EndToEnd exercises the real pipeline on a 2×2 tract grid: one
// dominant tract holds 100 of 110 people, and for moderate λ there is a
// wide μ window where it is selected alone.
func TestRun_EndToEnd(t *testing.T) {
	areas := []model.Area{
		{ID: "HUB", Population: 100, LandArea: 10000, Geom: square(0, 0)},
		{ID: "E", Population: 4, LandArea: 10000, Geom: square(100, 0)},
		{ID: "N", Population: 3, LandArea: 10000, Geom: square(0, 100)},
		{ID: "NE", Population: 3, LandArea: 10000, Geom: square(100, 100)},
	}
	gd, err := graph.Build(areas)
	require.NoError(t, err)

	sr, err := Run(context.Background(), gd, solver.NewDinic(), Config{
		Lambdas:        []float64{0.5},
		TargetFraction: 100.0 / 110.0,
		Tolerance:      0.01,
		FailFast:       true,
	})
	require.NoError(t, err)
	require.True(t, sr.AllConverged)

	res := sr.Entries[0].Search.Result
	assert.Equal(t, 1, res.NumSelected())
	assert.True(t, res.Selected[0], "the dominant tract alone hits the target")
	assert.InDelta(t, 100.0/110.0, res.PopulationFraction, 0.01)
	assert.InDelta(t, 10000, res.SelectedArea, 1e-6)
}

// TestRun_PrefersAdjacentPair: equal populations, but the bottom two tracts
// are much denser (smaller land area). Half the population is reachable
// either as the adjacent bottom pair or as a diagonal pair; the boundary
// term makes the adjacent pair strictly cheaper.
func TestRun_PrefersAdjacentPair(t *testing.T) {
	areas := []model.Area{
		{ID: "SW", Population: 25, LandArea: 10000, Geom: square(0, 0)},
		{ID: "SE", Population: 25, LandArea: 10000, Geom: square(100, 0)},
		{ID: "NW", Population: 25, LandArea: 90000, Geom: square(0, 100)},
		{ID: "NE", Population: 25, LandArea: 90000, Geom: square(100, 100)},
	}
	gd, err := graph.Build(areas)
	require.NoError(t, err)
	require.InDelta(t, 200, gd.Rho, 1e-9)

	sr, err := Run(context.Background(), gd, solver.NewDinic(), Config{
		Lambdas:        []float64{0.5},
		TargetFraction: 0.5,
		Tolerance:      0.01,
		FailFast:       true,
	})
	require.NoError(t, err)
	require.True(t, sr.AllConverged)

	res := sr.Entries[0].Search.Result
	assert.Equal(t, 2, res.NumSelected())
	assert.InDelta(t, 0.5, res.PopulationFraction, 0.01)
	assert.True(t, res.Selected[0] && res.Selected[1],
		"the adjacent dense pair beats any pair containing a sparse tract")
}
