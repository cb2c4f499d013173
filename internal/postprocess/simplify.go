package postprocess

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/model"
)

// Simplify reduces the vertex count of a dissolved geometry with
// Douglas-Peucker at the given distance tolerance (meters in the working
// projection). Rings stay closed, shells are never dropped (a shell that
// would collapse below a triangle keeps its original coordinates), and
// holes that collapse are removed. Vertex count never increases, and a
// ring that would become self-intersecting is retried at smaller
// tolerances before falling back to its original coordinates.
func Simplify(mp *geom.MultiPolygon, tolerance float64) (*model.SimplifyResult, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "postprocess: nothing to simplify")
	}
	if tolerance < 0 {
		return nil, eris.Errorf("postprocess: negative simplify tolerance %g", tolerance)
	}

	before := countVertices(mp)

	out := geom.NewMultiPolygon(geom.XY)
	for _, poly := range mp.Coords() {
		var simplified [][]geom.Coord
		for ri, ring := range poly {
			s := simplifyRingSafe(ring, tolerance)
			if len(s) < 4 {
				if ri == 0 {
					s = ring // shell must survive
				} else {
					continue // collapsed hole drops
				}
			}
			simplified = append(simplified, s)
		}
		p := geom.NewPolygon(geom.XY)
		if _, err := p.SetCoords(simplified); err != nil {
			return nil, eris.Wrap(err, "postprocess: rebuild simplified polygon")
		}
		if err := out.Push(p); err != nil {
			return nil, eris.Wrap(err, "postprocess: push simplified polygon")
		}
	}

	after := countVertices(out)
	reduction := 0.0
	if before > 0 {
		reduction = (1 - float64(after)/float64(before)) * 100
	}

	return &model.SimplifyResult{
		Geometry:              out,
		OriginalVertexCount:   before,
		SimplifiedVertexCount: after,
		ReductionPercent:      reduction,
	}, nil
}

// simplifyRingSafe simplifies a ring and rejects results that cross
// themselves: Douglas-Peucker works per-vertex and can fold a flattened
// edge across a kept spike. On a crossing the tolerance is halved and
// the ring re-simplified; after four attempts the original ring wins.
func simplifyRingSafe(ring []geom.Coord, tolerance float64) []geom.Coord {
	tol := tolerance
	for attempt := 0; attempt < 4; attempt++ {
		s := simplifyRing(ring, tol)
		if len(s) < 4 || !ringSelfIntersects(s) {
			return s
		}
		tol /= 2
	}
	return ring
}

// ringSelfIntersects reports whether any two non-adjacent segments of a
// closed ring touch or cross.
func ringSelfIntersects(ring []geom.Coord) bool {
	n := len(ring) - 1 // last vertex repeats the first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // first and last segments share the start vertex
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d geom.Coord) bool {
	d1 := orient2d(c, d, a)
	d2 := orient2d(c, d, b)
	d3 := orient2d(a, b, c)
	d4 := orient2d(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

// orient2d is the cross product of (b-a) and (p-a): positive when p lies
// left of the directed segment a->b.
func orient2d(a, b, p geom.Coord) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// onSegment reports whether p, known collinear with (a, b), lies within
// the segment's bounding box.
func onSegment(a, b, p geom.Coord) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// simplifyRing applies Douglas-Peucker to a closed ring. The ring is split
// at the vertex farthest from its start so both halves have stable
// endpoints, then each open half is simplified independently.
func simplifyRing(ring []geom.Coord, tolerance float64) []geom.Coord {
	if len(ring) <= 4 || tolerance == 0 {
		return ring
	}

	// Farthest vertex from the ring start (closing vertex excluded).
	split := 1
	best := 0.0
	for i := 1; i+1 < len(ring); i++ {
		d := sqDistCoord(ring[0], ring[i])
		if d > best {
			best = d
			split = i
		}
	}

	first := douglasPeucker(ring[:split+1], tolerance)
	second := douglasPeucker(ring[split:], tolerance)
	out := make([]geom.Coord, 0, len(first)+len(second)-1)
	out = append(out, first...)
	out = append(out, second[1:]...)
	return out
}

// douglasPeucker simplifies an open polyline, always keeping both
// endpoints.
func douglasPeucker(line []geom.Coord, tolerance float64) []geom.Coord {
	if len(line) <= 2 {
		return line
	}

	maxDist := 0.0
	maxIdx := 0
	for i := 1; i+1 < len(line); i++ {
		d := perpendicularDistance(line[i], line[0], line[len(line)-1])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= tolerance {
		return []geom.Coord{line[0], line[len(line)-1]}
	}

	left := douglasPeucker(line[:maxIdx+1], tolerance)
	right := douglasPeucker(line[maxIdx:], tolerance)
	out := make([]geom.Coord, 0, len(left)+len(right)-1)
	out = append(out, left...)
	out = append(out, right[1:]...)
	return out
}

// perpendicularDistance is the distance from p to the segment (a, b).
func perpendicularDistance(p, a, b geom.Coord) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}

func countVertices(mp *geom.MultiPolygon) int {
	n := 0
	for _, poly := range mp.Coords() {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}

func sqDistCoord(a, b geom.Coord) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
