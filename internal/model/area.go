package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Area is an atomic geographic unit (a tract): population, land area, and
// boundary geometry in the working equal-area projection. Immutable once
// loaded.
type Area struct {
	ID         string
	Population int64
	LandArea   float64 // square meters, > 0
	Geom       geom.T  // Polygon or MultiPolygon
}

// areaJSON is the serialized form of Area; geometry is stored as GeoJSON.
type areaJSON struct {
	ID         string          `json:"id"`
	Population int64           `json:"population"`
	LandArea   float64         `json:"land_area_sqm"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// MarshalJSON encodes the area with its geometry as an embedded GeoJSON
// geometry object.
func (a Area) MarshalJSON() ([]byte, error) {
	out := areaJSON{ID: a.ID, Population: a.Population, LandArea: a.LandArea}
	if a.Geom != nil {
		g, err := geojson.Marshal(a.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal geometry for area %s", a.ID)
		}
		out.Geometry = g
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an area, restoring the geometry from GeoJSON.
func (a *Area) UnmarshalJSON(data []byte) error {
	var in areaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrap(err, "model: unmarshal area")
	}
	a.ID = in.ID
	a.Population = in.Population
	a.LandArea = in.LandArea
	a.Geom = nil
	if len(in.Geometry) > 0 {
		var g geom.T
		if err := geojson.Unmarshal(in.Geometry, &g); err != nil {
			return eris.Wrapf(err, "model: unmarshal geometry for area %s", in.ID)
		}
		a.Geom = g
	}
	return nil
}

// AdjacencyEdge connects two adjacent areas (unordered pair of indices into
// GraphData.Areas, stored with I < J) with the length of their shared
// boundary in meters. Length zero is legal (point contiguity, attached
// islands).
type AdjacencyEdge struct {
	I      int     `json:"i"`
	J      int     `json:"j"`
	Length float64 `json:"length_m"`
}

// GraphData is the adjacency structure shared read-only across every λ and
// every μ trial. No component mutates it after Build.
type GraphData struct {
	Areas []Area          `json:"areas"`
	Edges []AdjacencyEdge `json:"edges"`

	// Rho is the characteristic length scale: median of √area over all
	// areas, in meters. Always > 0 for valid input.
	Rho float64 `json:"rho_m"`

	TotalPopulation int64   `json:"total_population"`
	TotalArea       float64 `json:"total_area_sqm"`
}

// NumNodes returns the number of areas in the graph.
func (gd *GraphData) NumNodes() int { return len(gd.Areas) }

// NumEdges returns the number of adjacency edges.
func (gd *GraphData) NumEdges() int { return len(gd.Edges) }
