package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfamerica/tractcut/internal/model"
)

// pairGraph is two 100m squares sharing one 100m boundary, populations
// 100 and 300, ρ = 100.
func pairGraph(t *testing.T) *model.GraphData {
	t.Helper()
	gd, err := Build([]model.Area{
		testArea("A", 100, 0, 0),
		testArea("B", 300, 100, 0),
	})
	require.NoError(t, err)
	return gd
}

func TestBuildNetwork_Capacities(t *testing.T) {
	gd := pairGraph(t)

	net, err := BuildNetwork(gd, Params{Lambda: 0.5, Mu: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, net.NumAreas)

	// source→i = μ·p_i
	assert.InDelta(t, 200, net.SourceCaps[0], 1e-9)
	assert.InDelta(t, 600, net.SourceCaps[1], 1e-9)

	// i→sink = (1−λ)·a_i/ρ² = 0.5·10000/10000
	assert.InDelta(t, 0.5, net.SinkCaps[0], 1e-9)
	assert.InDelta(t, 0.5, net.SinkCaps[1], 1e-9)

	// n-link = λ·l/ρ = 0.5·100/100
	require.Len(t, net.NLinks, 1)
	assert.InDelta(t, 0.5, net.NLinks[0].Cap, 1e-9)
}

func TestBuildNetwork_LambdaZeroDropsNLinks(t *testing.T) {
	gd := pairGraph(t)

	net, err := BuildNetwork(gd, Params{Lambda: 0, Mu: 1})
	require.NoError(t, err)

	assert.Empty(t, net.NLinks, "λ = 0 makes every boundary capacity zero")
	assert.InDelta(t, 1.0, net.SinkCaps[0], 1e-9)
}

func TestBuildNetwork_LambdaOneDegenerate(t *testing.T) {
	gd := pairGraph(t)

	_, err := BuildNetwork(gd, Params{Lambda: 1, Mu: 1})
	require.ErrorIs(t, err, model.ErrDegenerateParameter)
}

func TestBuildNetwork_NearOneIsValid(t *testing.T) {
	gd := pairGraph(t)

	net, err := BuildNetwork(gd, Params{Lambda: 0.999, Mu: 1})
	require.NoError(t, err)
	require.Len(t, net.NLinks, 1)
	assert.InDelta(t, 0.999, net.NLinks[0].Cap, 1e-9)
}

func TestBuildNetwork_InvalidParams(t *testing.T) {
	gd := pairGraph(t)

	cases := []struct {
		name string
		p    Params
	}{
		{"negative lambda", Params{Lambda: -0.1, Mu: 1}},
		{"lambda above one", Params{Lambda: 1.5, Mu: 1}},
		{"nan lambda", Params{Lambda: math.NaN(), Mu: 1}},
		{"negative mu", Params{Lambda: 0.5, Mu: -1}},
		{"nan mu", Params{Lambda: 0.5, Mu: math.NaN()}},
		{"infinite mu", Params{Lambda: 0.5, Mu: math.Inf(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildNetwork(gd, tc.p)
			assert.Error(t, err)
		})
	}
}

func TestEnergy(t *testing.T) {
	gd := pairGraph(t)

	// Select only node 0:
	//   boundary = λ·100/100 = 0.5
	//   area     = (1−λ)·10000/10000 = 0.5
	//   reward   = μ·100 = 200
	e := Energy(gd, []bool{true, false}, 0.5, 2)
	assert.InDelta(t, 0.5+0.5-200, e, 1e-9)

	// Empty selection has zero energy.
	assert.Zero(t, Energy(gd, []bool{false, false}, 0.5, 2))

	// Full selection cuts nothing.
	e = Energy(gd, []bool{true, true}, 0.5, 2)
	assert.InDelta(t, 1.0-800, e, 1e-9)
}

func TestSummarize(t *testing.T) {
	gd, err := Build(fourSquares())
	require.NoError(t, err)

	s := Summarize(gd)
	assert.Equal(t, 4, s.NumNodes)
	assert.Equal(t, 6, s.NumEdges)
	assert.Equal(t, int64(1000), s.TotalPopulation)
	assert.InDelta(t, 0.04, s.TotalAreaSqkm, 1e-9)
	assert.InDelta(t, 100, s.RhoMeters, 1e-9)
	assert.InDelta(t, 3.0, s.MeanNeighbors, 1e-9)
	assert.InDelta(t, 100, s.MaxBoundaryM, 1e-9)
}
