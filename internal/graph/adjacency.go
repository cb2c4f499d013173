package graph

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/halfamerica/tractcut/internal/model"
)

// coordScale quantizes coordinates to millimeters when matching shared
// boundary segments and vertices. Tract geometries from a common source
// share exact vertices, so a fine grid only absorbs float noise.
const coordScale = 1000.0

type quantPoint struct{ x, y int64 }

type quantSegment struct{ a, b quantPoint }

// Build constructs the adjacency graph for a set of area records: one node
// per area, one edge per unordered pair of contiguous areas with the shared
// boundary length, and the characteristic length ρ = median(√area).
//
// Contiguity is Queen-style: areas sharing a boundary segment get an edge
// with the total shared segment length; areas touching only at a point get
// an edge with length zero. Areas with no neighbor at all are attached to
// their nearest neighbor by centroid distance so the graph has no isolated
// nodes.
func Build(areas []model.Area) (*model.GraphData, error) {
	if len(areas) == 0 {
		return nil, eris.Wrap(model.ErrInvalidGraph, "graph: no areas")
	}

	var totalPop int64
	var totalArea float64
	for i := range areas {
		totalPop += areas[i].Population
		totalArea += areas[i].LandArea
	}
	if totalPop == 0 {
		return nil, eris.Wrap(model.ErrInvalidGraph, "graph: total population is zero")
	}

	log := zap.L().With(zap.String("component", "graph.build"))
	log.Info("building adjacency graph", zap.Int("areas", len(areas)))

	// Index every boundary segment and vertex by its quantized key. Segment
	// order within a key slice follows input order, which keeps everything
	// downstream deterministic.
	segAreas := make(map[quantSegment][]int)
	segLength := make(map[quantSegment]float64)
	segKeys := make([]quantSegment, 0)
	vtxAreas := make(map[quantPoint][]int)
	vtxKeys := make([]quantPoint, 0)

	for i := range areas {
		seenSeg := make(map[quantSegment]bool)
		seenVtx := make(map[quantPoint]bool)
		for _, ring := range polygonRings(areas[i].Geom) {
			for k := 0; k+1 < len(ring); k++ {
				p := quantize(ring[k])
				q := quantize(ring[k+1])
				if p == q {
					continue
				}
				if !seenVtx[p] {
					seenVtx[p] = true
					if len(vtxAreas[p]) == 0 {
						vtxKeys = append(vtxKeys, p)
					}
					vtxAreas[p] = append(vtxAreas[p], i)
				}
				seg := canonicalSegment(p, q)
				if seenSeg[seg] {
					continue
				}
				seenSeg[seg] = true
				if len(segAreas[seg]) == 0 {
					segKeys = append(segKeys, seg)
					segLength[seg] = segmentLength(ring[k], ring[k+1])
				}
				segAreas[seg] = append(segAreas[seg], i)
			}
		}
	}

	// Shared segments become edges weighted by summed shared length.
	edgeLength := make(map[[2]int]float64)
	for _, seg := range segKeys {
		owners := segAreas[seg]
		for x := 0; x < len(owners); x++ {
			for y := x + 1; y < len(owners); y++ {
				key := orderedPair(owners[x], owners[y])
				edgeLength[key] += segLength[seg]
			}
		}
	}

	// Point-touch pairs that share no segment still count as adjacent,
	// with shared length zero.
	for _, p := range vtxKeys {
		owners := vtxAreas[p]
		if len(owners) < 2 {
			continue
		}
		for x := 0; x < len(owners); x++ {
			for y := x + 1; y < len(owners); y++ {
				key := orderedPair(owners[x], owners[y])
				if _, ok := edgeLength[key]; !ok {
					edgeLength[key] = 0
				}
			}
		}
	}

	// Attach islands to their nearest neighbor by centroid distance.
	degree := make([]int, len(areas))
	for key := range edgeLength {
		degree[key[0]]++
		degree[key[1]]++
	}
	islands := 0
	if len(areas) > 1 {
		centroids := make([][2]float64, len(areas))
		for i := range areas {
			centroids[i] = centroid(areas[i].Geom)
		}
		for i := range areas {
			if degree[i] > 0 {
				continue
			}
			islands++
			nearest := -1
			best := math.MaxFloat64
			for j := range areas {
				if j == i {
					continue
				}
				d := sqDist(centroids[i], centroids[j])
				if d < best {
					best = d
					nearest = j
				}
			}
			key := orderedPair(i, nearest)
			if _, ok := edgeLength[key]; !ok {
				edgeLength[key] = 0
				degree[i]++
				degree[nearest]++
			}
		}
	}

	edges := make([]model.AdjacencyEdge, 0, len(edgeLength))
	for key, l := range edgeLength {
		edges = append(edges, model.AdjacencyEdge{I: key[0], J: key[1], Length: l})
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].I != edges[b].I {
			return edges[a].I < edges[b].I
		}
		return edges[a].J < edges[b].J
	})

	rho := computeRho(areas)
	if rho <= 0 {
		return nil, eris.Wrap(model.ErrInvalidGraph, "graph: characteristic length is zero")
	}

	log.Info("adjacency graph built",
		zap.Int("edges", len(edges)),
		zap.Int("islands_attached", islands),
		zap.Float64("rho_m", rho),
	)

	return &model.GraphData{
		Areas:           areas,
		Edges:           edges,
		Rho:             rho,
		TotalPopulation: totalPop,
		TotalArea:       totalArea,
	}, nil
}

// computeRho returns the median of √area over all areas, in meters.
func computeRho(areas []model.Area) float64 {
	sqrts := make([]float64, len(areas))
	for i := range areas {
		sqrts[i] = math.Sqrt(areas[i].LandArea)
	}
	sort.Float64s(sqrts)
	n := len(sqrts)
	if n%2 == 1 {
		return sqrts[n/2]
	}
	return (sqrts[n/2-1] + sqrts[n/2]) / 2
}

// polygonRings extracts all linear rings (exterior and holes) from a
// Polygon or MultiPolygon.
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

// centroid returns the vertex mean of all rings. It is only used for
// nearest-neighbor island attachment, where a rough center is enough.
func centroid(g geom.T) [2]float64 {
	var sx, sy float64
	var n int
	for _, ring := range polygonRings(g) {
		for k := 0; k+1 < len(ring); k++ { // skip the closing vertex
			sx += ring[k][0]
			sy += ring[k][1]
			n++
		}
	}
	if n == 0 {
		return [2]float64{}
	}
	return [2]float64{sx / float64(n), sy / float64(n)}
}

func quantize(c geom.Coord) quantPoint {
	return quantPoint{
		x: int64(math.Round(c[0] * coordScale)),
		y: int64(math.Round(c[1] * coordScale)),
	}
}

func canonicalSegment(p, q quantPoint) quantSegment {
	if q.x < p.x || (q.x == p.x && q.y < p.y) {
		p, q = q, p
	}
	return quantSegment{a: p, b: q}
}

func segmentLength(a, b geom.Coord) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

func orderedPair(i, j int) [2]int {
	if j < i {
		i, j = j, i
	}
	return [2]int{i, j}
}

func sqDist(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
