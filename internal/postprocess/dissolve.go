// Package postprocess turns a λ's selected partition into delivery-ready
// geometry: dissolve selected areas into merged polygons, simplify for
// compact transfer, and export as topology-sharing TopoJSON.
package postprocess

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/model"
)

// coordScale quantizes coordinates to millimeters when matching shared
// segments, mirroring the adjacency builder's grid.
const coordScale = 1000.0

type quantPoint struct{ x, y int64 }

type quantSegment struct{ a, b quantPoint }

// directed boundary segment with its original float coordinates.
type boundarySeg struct {
	from, to quantPoint
	a, b     geom.Coord
}

// Dissolve merges the selected areas' boundaries into one (possibly
// multi-part) polygon using boundary-preserving union: any segment shared
// by two selected areas is interior and disappears; segments owned by
// exactly one selected area form the outline, which is stitched back into
// rings. The operation is deterministic, so dissolving the same partition
// twice yields geometrically equal output.
func Dissolve(areas []model.Area, selected []bool) (*model.DissolveResult, error) {
	if len(selected) != len(areas) {
		return nil, eris.Errorf("postprocess: partition length %d does not match %d areas",
			len(selected), len(areas))
	}
	numSelected := 0
	for _, s := range selected {
		if s {
			numSelected++
		}
	}
	if numSelected == 0 {
		return nil, eris.New("postprocess: no areas selected")
	}

	// Count undirected occurrences of every segment across selected rings.
	counts := make(map[quantSegment]int)
	var segs []boundarySeg
	for i := range areas {
		if !selected[i] {
			continue
		}
		for _, ring := range polygonRings(areas[i].Geom) {
			for k := 0; k+1 < len(ring); k++ {
				p := quantize(ring[k])
				q := quantize(ring[k+1])
				if p == q {
					continue
				}
				counts[undirected(p, q)]++
				segs = append(segs, boundarySeg{from: p, to: q, a: ring[k], b: ring[k+1]})
			}
		}
	}

	// Boundary = segments seen exactly once. A count above two means the
	// input was not a planar subdivision.
	var boundary []boundarySeg
	for _, s := range segs {
		switch counts[undirected(s.from, s.to)] {
		case 1:
			boundary = append(boundary, s)
		case 2:
			// interior: shared by two selected areas
		default:
			return nil, eris.Wrapf(model.ErrGeometry,
				"postprocess: segment shared by %d rings", counts[undirected(s.from, s.to)])
		}
	}
	if len(boundary) == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "postprocess: dissolved boundary is empty")
	}

	rings, err := stitchRings(boundary)
	if err != nil {
		return nil, err
	}

	mp, numParts, totalArea, err := assembleParts(rings)
	if err != nil {
		return nil, err
	}

	return &model.DissolveResult{
		Geometry:     mp,
		NumParts:     numParts,
		TotalAreaSqm: totalArea,
		NumTracts:    numSelected,
	}, nil
}

// stitchRings chains boundary segments end to end into closed rings.
// Segments are consumed in input order so the result is deterministic.
func stitchRings(boundary []boundarySeg) ([][]geom.Coord, error) {
	bySource := make(map[quantPoint][]int)
	for i, s := range boundary {
		bySource[s.from] = append(bySource[s.from], i)
	}
	used := make([]bool, len(boundary))

	next := func(p quantPoint) int {
		for _, idx := range bySource[p] {
			if !used[idx] {
				return idx
			}
		}
		return -1
	}

	var rings [][]geom.Coord
	for i := range boundary {
		if used[i] {
			continue
		}
		start := boundary[i].from
		ring := []geom.Coord{boundary[i].a, boundary[i].b}
		used[i] = true
		cur := boundary[i].to

		for cur != start {
			j := next(cur)
			if j < 0 {
				return nil, eris.Wrap(model.ErrGeometry, "postprocess: open boundary chain")
			}
			used[j] = true
			ring = append(ring, boundary[j].b)
			cur = boundary[j].to
		}
		// Snap the closing vertex exactly onto the opening one.
		ring[len(ring)-1] = ring[0]
		if len(ring) < 4 {
			return nil, eris.Wrap(model.ErrGeometry, "postprocess: degenerate ring")
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// assembleParts groups stitched rings into polygons. Input exterior rings
// share one winding direction, so a stitched ring winding the other way is
// a hole; holes are attached to the shell that contains them.
func assembleParts(rings [][]geom.Coord) (*geom.MultiPolygon, int, float64, error) {
	type ringInfo struct {
		coords []geom.Coord
		area   float64 // signed
	}
	infos := make([]ringInfo, len(rings))
	var refSign float64
	var maxAbs float64
	for i, r := range rings {
		a := signedArea(r)
		infos[i] = ringInfo{coords: r, area: a}
		if math.Abs(a) > maxAbs {
			maxAbs = math.Abs(a)
			refSign = sign(a)
		}
	}
	if refSign == 0 {
		return nil, 0, 0, eris.Wrap(model.ErrGeometry, "postprocess: zero-area boundary")
	}

	var shells, holes []ringInfo
	for _, info := range infos {
		if sign(info.area) == refSign {
			shells = append(shells, info)
		} else {
			holes = append(holes, info)
		}
	}
	if len(shells) == 0 {
		return nil, 0, 0, eris.Wrap(model.ErrGeometry, "postprocess: no shell rings")
	}

	polys := make([][][]geom.Coord, len(shells))
	totalArea := 0.0
	for i, sh := range shells {
		polys[i] = [][]geom.Coord{sh.coords}
		totalArea += math.Abs(sh.area)
	}
	for _, h := range holes {
		attached := false
		for i, sh := range shells {
			if ringContains(sh.coords, h.coords[0]) {
				polys[i] = append(polys[i], h.coords)
				totalArea -= math.Abs(h.area)
				attached = true
				break
			}
		}
		if !attached {
			return nil, 0, 0, eris.Wrap(model.ErrGeometry, "postprocess: orphan hole ring")
		}
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, poly := range polys {
		p := geom.NewPolygon(geom.XY)
		if _, err := p.SetCoords(poly); err != nil {
			return nil, 0, 0, eris.Wrap(err, "postprocess: build polygon")
		}
		if err := mp.Push(p); err != nil {
			return nil, 0, 0, eris.Wrap(err, "postprocess: push polygon")
		}
	}
	return mp, len(shells), totalArea, nil
}

// polygonRings extracts all rings from a Polygon or MultiPolygon.
func polygonRings(g geom.T) [][]geom.Coord {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.Coords()
	case *geom.MultiPolygon:
		var rings [][]geom.Coord
		for _, poly := range t.Coords() {
			rings = append(rings, poly...)
		}
		return rings
	default:
		return nil
	}
}

// signedArea is the shoelace sum over a closed ring.
func signedArea(ring []geom.Coord) float64 {
	var s float64
	for i := 0; i+1 < len(ring); i++ {
		s += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return s / 2
}

// ringContains reports whether a point is inside a closed ring, by
// even-odd ray casting.
func ringContains(ring []geom.Coord, pt geom.Coord) bool {
	inside := false
	for i := 0; i+1 < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[i+1][0], ring[i+1][1]
		if (yi > pt[1]) != (yj > pt[1]) &&
			pt[0] < (xj-xi)*(pt[1]-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func quantize(c geom.Coord) quantPoint {
	return quantPoint{
		x: int64(math.Round(c[0] * coordScale)),
		y: int64(math.Round(c[1] * coordScale)),
	}
}

func undirected(p, q quantPoint) quantSegment {
	if q.x < p.x || (q.x == p.x && q.y < p.y) {
		p, q = q, p
	}
	return quantSegment{a: p, b: q}
}
