package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleGraph(t *testing.T) *model.GraphData {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	p.MustSetCoords([][]geom.Coord{{
		{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0},
	}})
	return &model.GraphData{
		Areas: []model.Area{
			{ID: "T1", Population: 120, LandArea: 10000, Geom: p},
			{ID: "T2", Population: 80, LandArea: 10000},
		},
		Edges:           []model.AdjacencyEdge{{I: 0, J: 1, Length: 100}},
		Rho:             100,
		TotalPopulation: 200,
		TotalArea:       20000,
	}
}

func TestStore_GraphRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	gd := sampleGraph(t)

	require.NoError(t, st.SaveGraph(ctx, "key-1", gd))

	loaded, found, err := st.LoadGraph(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, gd.Rho, loaded.Rho)
	assert.Equal(t, gd.TotalPopulation, loaded.TotalPopulation)
	assert.Equal(t, gd.Edges, loaded.Edges)
	require.Len(t, loaded.Areas, 2)
	assert.Equal(t, "T1", loaded.Areas[0].ID)
	assert.Equal(t, int64(120), loaded.Areas[0].Population)

	// Geometry survives the JSON payload.
	require.NotNil(t, loaded.Areas[0].Geom)
	poly, ok := loaded.Areas[0].Geom.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, gd.Areas[0].Geom.(*geom.Polygon).Coords(), poly.Coords())
	assert.Nil(t, loaded.Areas[1].Geom)
}

func TestStore_GraphMiss(t *testing.T) {
	st := openTestStore(t)

	gd, found, err := st.LoadGraph(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, gd)
}

func TestStore_SweepRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sr := &model.SweepResult{
		Lambdas: []float64{0.1, 0.2},
		Entries: []model.LambdaEntry{
			{
				Lambda:    0.1,
				Succeeded: true,
				Elapsed:   42 * time.Millisecond,
				Search: &model.SearchResult{
					Converged:  true,
					Iterations: 7,
					Result: model.OptimizationResult{
						Selected:           []bool{true, false},
						SelectedPopulation: 120,
						PopulationFraction: 0.6,
						Lambda:             0.1,
						Mu:                 0.05,
					},
				},
			},
			{Lambda: 0.2, Error: "did not converge"},
		},
		TotalIterations: 7,
		AllConverged:    false,
	}

	id, err := st.SaveSweep(ctx, "graph-key", "config-key", sr)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	loaded, found, err := st.LoadSweep(ctx, "graph-key", "config-key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sr.Lambdas, loaded.Lambdas)
	require.Len(t, loaded.Entries, 2)
	assert.Equal(t, sr.Entries[0].Search.Result.Selected, loaded.Entries[0].Search.Result.Selected)
	assert.Equal(t, 7, loaded.TotalIterations)
	assert.Equal(t, "did not converge", loaded.Entries[1].Error)
}

func TestStore_SweepMiss(t *testing.T) {
	st := openTestStore(t)

	_, found, err := st.LoadSweep(context.Background(), "g", "c")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SweepUpsert(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first := &model.SweepResult{Lambdas: []float64{0.1}, TotalIterations: 1}
	second := &model.SweepResult{Lambdas: []float64{0.1}, TotalIterations: 9}

	_, err := st.SaveSweep(ctx, "g", "c", first)
	require.NoError(t, err)
	_, err = st.SaveSweep(ctx, "g", "c", second)
	require.NoError(t, err)

	loaded, found, err := st.LoadSweep(ctx, "g", "c")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 9, loaded.TotalIterations, "same keys must overwrite")
}

func TestStore_SeparateConfigKeys(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.SaveSweep(ctx, "g", "c1", &model.SweepResult{TotalIterations: 1})
	require.NoError(t, err)
	_, err = st.SaveSweep(ctx, "g", "c2", &model.SweepResult{TotalIterations: 2})
	require.NoError(t, err)

	one, found, err := st.LoadSweep(ctx, "g", "c1")
	require.NoError(t, err)
	require.True(t, found)
	two, found, err := st.LoadSweep(ctx, "g", "c2")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 1, one.TotalIterations)
	assert.Equal(t, 2, two.TotalIterations)
}
