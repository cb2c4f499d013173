package postprocess

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/model"
)

// DefaultObjectName names the geometry object in single-λ exports; the
// rendering collaborator looks it up by this name.
const DefaultObjectName = "selected_region"

// Metadata is embedded as TopoJSON properties on each exported object.
// The field set is a fixed schema consumed by the map viewer.
type Metadata struct {
	LambdaValue        float64
	PopulationSelected int64
	TotalPopulation    int64
	AreaSqm            float64
	NumParts           int
	TotalAreaAllSqm    float64
}

func (m Metadata) properties() map[string]any {
	return map[string]any{
		"lambda_value":        m.LambdaValue,
		"population_selected": m.PopulationSelected,
		"total_population":    m.TotalPopulation,
		"area_sqm":            m.AreaSqm,
		"num_parts":           m.NumParts,
		"total_area_all_sqm":  m.TotalAreaAllSqm,
	}
}

// Export reprojects a simplified working-projection geometry to lon/lat,
// quantizes it, and writes a single-object TopoJSON file.
func Export(mp *geom.MultiPolygon, path string, meta Metadata, objectName string, quantization float64) (*model.ExportResult, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "postprocess: cannot export empty geometry")
	}
	if objectName == "" {
		objectName = DefaultObjectName
	}
	if quantization == 0 {
		quantization = DefaultQuantization
	}

	geographic, err := toGeographic(mp)
	if err != nil {
		return nil, err
	}

	topo, err := NewTopology([]TopoInput{{
		Name:       objectName,
		Geometry:   geographic,
		Properties: meta.properties(),
	}}, quantization)
	if err != nil {
		return nil, err
	}

	size, err := writeTopology(topo, path)
	if err != nil {
		return nil, err
	}

	return &model.ExportResult{
		Path:          path,
		FileSizeBytes: size,
		LambdaValue:   meta.LambdaValue,
		ObjectName:    objectName,
	}, nil
}

// ExportCombined writes all λ values into one multi-object TopoJSON file,
// one object per λ named like "lambda_0.30".
func ExportCombined(inputs []TopoInput, path string, quantization float64) (int64, error) {
	if quantization == 0 {
		quantization = DefaultQuantization
	}
	reprojected := make([]TopoInput, len(inputs))
	for i, in := range inputs {
		g, err := toGeographic(in.Geometry)
		if err != nil {
			return 0, err
		}
		reprojected[i] = TopoInput{Name: in.Name, Geometry: g, Properties: in.Properties}
	}
	topo, err := NewTopology(reprojected, quantization)
	if err != nil {
		return 0, err
	}
	return writeTopology(topo, path)
}

func writeTopology(topo *Topology, path string) (int64, error) {
	data, err := json.Marshal(topo)
	if err != nil {
		return 0, eris.Wrap(err, "postprocess: marshal topology")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "postprocess: create output dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "postprocess: write %s", path)
	}
	return int64(len(data)), nil
}
