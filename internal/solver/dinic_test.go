package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfamerica/tractcut/internal/graph"
)

func TestDinic_SingleNodeSelected(t *testing.T) {
	// Source pull (5) beats sink pull (1): cutting the sink arc is
	// cheapest, leaving the node on the source side.
	net := &graph.Network{
		NumAreas:   1,
		SourceCaps: []float64{5},
		SinkCaps:   []float64{1},
	}

	part, flow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	require.Len(t, part, 1)
	assert.True(t, part[0])
	assert.InDelta(t, 1.0, flow, 1e-6)
}

func TestDinic_SingleNodeRejected(t *testing.T) {
	net := &graph.Network{
		NumAreas:   1,
		SourceCaps: []float64{1},
		SinkCaps:   []float64{5},
	}

	part, flow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	assert.False(t, part[0])
	assert.InDelta(t, 1.0, flow, 1e-6)
}

func TestDinic_StrongCouplingPullsNeighbor(t *testing.T) {
	// Node 0 wants selection (10 vs 1), node 1 alone would not (1 vs 2),
	// but the 5-capacity coupling makes separating them too expensive:
	//   cut {0,1} = 1+2 = 3, cut {0} = 1+1+5 = 7, cut {} = 11.
	net := &graph.Network{
		NumAreas:   2,
		SourceCaps: []float64{10, 1},
		SinkCaps:   []float64{1, 2},
		NLinks:     []graph.NLink{{I: 0, J: 1, Cap: 5}},
	}

	part, flow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, Partition{true, true}, part)
	assert.InDelta(t, 3.0, flow, 1e-6)
}

func TestDinic_WeakCouplingSeparates(t *testing.T) {
	// Same nodes with a 0.1 coupling: cut {0} = 1+1+0.1 = 2.1 beats
	// cut {0,1} = 3.
	net := &graph.Network{
		NumAreas:   2,
		SourceCaps: []float64{10, 1},
		SinkCaps:   []float64{1, 2},
		NLinks:     []graph.NLink{{I: 0, J: 1, Cap: 0.1}},
	}

	part, flow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, Partition{true, false}, part)
	assert.InDelta(t, 2.1, flow, 1e-6)
}

func TestDinic_ZeroNetwork(t *testing.T) {
	// μ = 0 everywhere: nothing flows, nothing is reachable from the
	// source, so nothing is selected.
	net := &graph.Network{
		NumAreas:   3,
		SourceCaps: []float64{0, 0, 0},
		SinkCaps:   []float64{1, 1, 1},
	}

	part, flow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, Partition{false, false, false}, part)
	assert.Zero(t, flow)
}

func TestDinic_Deterministic(t *testing.T) {
	net := &graph.Network{
		NumAreas:   3,
		SourceCaps: []float64{4, 2, 1},
		SinkCaps:   []float64{1, 2, 4},
		NLinks: []graph.NLink{
			{I: 0, J: 1, Cap: 1.5},
			{I: 1, J: 2, Cap: 1.5},
		},
	}

	first, firstFlow, err := NewDinic().MinCut(context.Background(), net)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		part, flow, err := NewDinic().MinCut(context.Background(), net)
		require.NoError(t, err)
		assert.Equal(t, first, part)
		assert.InDelta(t, firstFlow, flow, 1e-9)
	}
}

func TestDinic_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	net := &graph.Network{
		NumAreas:   1,
		SourceCaps: []float64{1},
		SinkCaps:   []float64{1},
	}

	_, _, err := NewDinic().MinCut(ctx, net)
	assert.Error(t, err)
}
