package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestArea_JSONKeepsGeometry(t *testing.T) {
	p := geom.NewPolygon(geom.XY)
	p.MustSetCoords([][]geom.Coord{{
		{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0},
	}})
	a := Area{ID: "36001000100", Population: 4200, LandArea: 10000, Geom: p}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var back Area
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, a.ID, back.ID)
	assert.Equal(t, a.Population, back.Population)
	require.NotNil(t, back.Geom)
	poly, ok := back.Geom.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, p.Coords(), poly.Coords())
}

func TestArea_JSONWithoutGeometry(t *testing.T) {
	data, err := json.Marshal(Area{ID: "X", Population: 1, LandArea: 2})
	require.NoError(t, err)

	var back Area
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Geom)
}

func TestOptimizationResult_NumSelected(t *testing.T) {
	r := OptimizationResult{Selected: []bool{true, false, true, true}}
	assert.Equal(t, 3, r.NumSelected())

	empty := OptimizationResult{}
	assert.Zero(t, empty.NumSelected())
}

func TestSweepResult_Entry(t *testing.T) {
	sr := SweepResult{Entries: []LambdaEntry{{Lambda: 0.1}, {Lambda: 0.3}}}

	e := sr.Entry(0.3)
	require.NotNil(t, e)
	assert.Equal(t, 0.3, e.Lambda)

	assert.Nil(t, sr.Entry(0.5))
}

func TestConvergenceError_Message(t *testing.T) {
	err := &ConvergenceError{Lambda: 0.3, Iterations: 50, BestFraction: 0.4821}
	msg := err.Error()
	assert.Contains(t, msg, "0.3")
	assert.Contains(t, msg, "50")
	assert.Contains(t, msg, "0.4821")
}
