// Package tract loads area records from a shapefile produced by the data
// ingestion collaborator. Geometry is expected to be valid and already in
// the working equal-area projection.
package tract

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/model"
)

// LoadOptions names the attribute fields carrying each Area property.
type LoadOptions struct {
	IDField         string // default GEOID
	PopulationField string // default POP
	AreaField       string // default ALAND; falls back to geometry area
}

func (o *LoadOptions) normalize() {
	if o.IDField == "" {
		o.IDField = "GEOID"
	}
	if o.PopulationField == "" {
		o.PopulationField = "POP"
	}
	if o.AreaField == "" {
		o.AreaField = "ALAND"
	}
}

// Load reads all polygon records from the shapefile into Area values.
// Records with missing geometry or non-positive land area are dropped.
func Load(path string, opts LoadOptions) ([]model.Area, error) {
	opts.normalize()

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(opts.IDField)]
	if !ok {
		return nil, eris.Errorf("tract: shapefile has no %q field", opts.IDField)
	}
	popIdx, ok := fieldIdx[strings.ToLower(opts.PopulationField)]
	if !ok {
		return nil, eris.Errorf("tract: shapefile has no %q field", opts.PopulationField)
	}
	areaIdx, hasAreaField := fieldIdx[strings.ToLower(opts.AreaField)]

	var areas []model.Area
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		id := attribute(reader, idIdx)
		pop, err := strconv.ParseInt(attribute(reader, popIdx), 10, 64)
		if err != nil || pop < 0 {
			skipped++
			continue
		}

		landArea := 0.0
		if hasAreaField {
			landArea, _ = strconv.ParseFloat(attribute(reader, areaIdx), 64)
		}
		if landArea <= 0 {
			landArea = geometryArea(g)
		}
		if landArea <= 0 {
			skipped++
			continue
		}

		areas = append(areas, model.Area{
			ID:         id,
			Population: pop,
			LandArea:   landArea,
			Geom:       g,
		})
	}

	if skipped > 0 {
		zap.L().Debug("tract: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(areas) == 0 {
		return nil, eris.Wrapf(model.ErrInvalidGraph, "tract: no usable records in %s", path)
	}

	zap.L().Info("loaded tracts",
		zap.String("path", path),
		zap.Int("count", len(areas)),
	)
	return areas, nil
}

func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one single-ring polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least 4 points
			continue
		}

		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			zap.L().Debug("tract: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// geometryArea is the unsigned shoelace area over all rings, used when the
// land-area attribute is absent.
func geometryArea(mp *geom.MultiPolygon) float64 {
	total := 0.0
	for _, poly := range mp.Coords() {
		for _, ring := range poly {
			var s float64
			for i := 0; i+1 < len(ring); i++ {
				s += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
			}
			total += math.Abs(s / 2)
		}
	}
	return total
}
