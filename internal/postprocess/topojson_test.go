package postprocess

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func lonLatSquare(lon, lat, size float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}})
	if err != nil {
		panic(err)
	}
	if err := mp.Push(p); err != nil {
		panic(err)
	}
	return mp
}

func TestNewTopology_RoundtripWithinQuantizationStep(t *testing.T) {
	in := lonLatSquare(-96, 38, 1.0)

	topo, err := NewTopology([]TopoInput{{Name: "region", Geometry: in}}, 1e4)
	require.NoError(t, err)

	require.NotNil(t, topo.Transform)
	assert.Equal(t, "Topology", topo.Type)
	assert.Equal(t, []float64{-96, 38, -95, 39}, topo.BBox)

	out, err := topo.DecodeObject("region")
	require.NoError(t, err)

	want := in.Coords()[0][0]
	got := out.Coords()[0][0]
	require.Len(t, got, len(want))
	step := topo.Transform.Scale
	for i := range want {
		assert.InDelta(t, want[i][0], got[i][0], 2*step[0], "vertex %d lon", i)
		assert.InDelta(t, want[i][1], got[i][1], 2*step[1], "vertex %d lat", i)
	}
}

func TestNewTopology_SharedRingStoredOnce(t *testing.T) {
	g := lonLatSquare(-96, 38, 1.0)

	topo, err := NewTopology([]TopoInput{
		{Name: "a", Geometry: g},
		{Name: "b", Geometry: g},
	}, 1e4)
	require.NoError(t, err)

	assert.Len(t, topo.Arcs, 1, "identical rings must share one arc")
	assert.Len(t, topo.Objects, 2)
}

func TestNewTopology_ReversedRingSharesArc(t *testing.T) {
	fwd := lonLatSquare(-96, 38, 1.0)

	rev := geom.NewMultiPolygon(geom.XY)
	p := geom.NewPolygon(geom.XY)
	p.MustSetCoords([][]geom.Coord{{
		{-96, 38}, {-96, 39}, {-95, 39}, {-95, 38}, {-96, 38},
	}})
	require.NoError(t, rev.Push(p))

	topo, err := NewTopology([]TopoInput{
		{Name: "fwd", Geometry: fwd},
		{Name: "rev", Geometry: rev},
	}, 1e4)
	require.NoError(t, err)

	require.Len(t, topo.Arcs, 1, "a reversed ring reuses the arc via complement")
	ref := topo.Objects["rev"].Geometries[0].Arcs[0][0][0]
	assert.Equal(t, ^0, ref)

	// Both decode back to their own orientation.
	out, err := topo.DecodeObject("rev")
	require.NoError(t, err)
	ring := out.Coords()[0][0]
	assert.InDelta(t, -96, ring[0][0], 1e-3)
	assert.InDelta(t, 38, ring[0][1], 1e-3)
	assert.InDelta(t, -96, ring[1][0], 1e-3)
	assert.InDelta(t, 39, ring[1][1], 1e-3)
}

func TestNewTopology_PropertiesSurviveJSON(t *testing.T) {
	topo, err := NewTopology([]TopoInput{{
		Name:       "region",
		Geometry:   lonLatSquare(-96, 38, 1.0),
		Properties: map[string]any{"lambda_value": 0.3, "num_parts": 1},
	}}, 1e4)
	require.NoError(t, err)

	data, err := json.Marshal(topo)
	require.NoError(t, err)

	var decoded Topology
	require.NoError(t, json.Unmarshal(data, &decoded))

	obj, ok := decoded.Objects["region"]
	require.True(t, ok)
	require.Len(t, obj.Geometries, 1)
	assert.Equal(t, "MultiPolygon", obj.Geometries[0].Type)
	assert.InDelta(t, 0.3, obj.Geometries[0].Properties["lambda_value"].(float64), 1e-12)
}

func TestNewTopology_Invalid(t *testing.T) {
	_, err := NewTopology(nil, 1e4)
	assert.Error(t, err)

	_, err = NewTopology([]TopoInput{{Name: "x", Geometry: lonLatSquare(0, 0, 1)}}, 1)
	assert.Error(t, err)

	empty := geom.NewMultiPolygon(geom.XY)
	_, err = NewTopology([]TopoInput{{Name: "x", Geometry: empty}}, 1e4)
	assert.Error(t, err)
}

func TestDecodeObject_UnknownName(t *testing.T) {
	topo, err := NewTopology([]TopoInput{{Name: "region", Geometry: lonLatSquare(0, 0, 1)}}, 1e4)
	require.NoError(t, err)

	_, err = topo.DecodeObject("missing")
	assert.Error(t, err)
}
