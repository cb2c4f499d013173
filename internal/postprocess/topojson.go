package postprocess

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/halfamerica/tractcut/internal/model"
)

// DefaultQuantization is the TopoJSON prequantize factor: coordinates snap
// to a 1e5 × 1e5 grid over the bounding box, a good precision/size balance
// for web delivery.
const DefaultQuantization = 1e5

// Topology is a minimal TopoJSON document. Arcs are stored once and shared
// between geometries, so adjacent polygons keep identical boundary
// vertices after quantization; an independent-polygon format would leave
// visible slivers at render time.
type Topology struct {
	Type      string                 `json:"type"`
	Transform *Transform             `json:"transform,omitempty"`
	Objects   map[string]*TopoObject `json:"objects"`
	Arcs      [][][2]int64           `json:"arcs"`
	BBox      []float64              `json:"bbox,omitempty"`
}

// Transform is the TopoJSON quantization transform.
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// TopoObject is a named geometry collection.
type TopoObject struct {
	Type       string          `json:"type"`
	Geometries []*TopoGeometry `json:"geometries"`
}

// TopoGeometry is one MultiPolygon with its metadata properties. Arcs is
// indexed polygon → ring → arc references (complement encoding for
// reversed arcs).
type TopoGeometry struct {
	Type       string         `json:"type"`
	Arcs       [][][]int      `json:"arcs"`
	Properties map[string]any `json:"properties,omitempty"`
}

// TopoInput is one named geometry (in lon/lat) to encode into a topology.
type TopoInput struct {
	Name       string
	Geometry   *geom.MultiPolygon
	Properties map[string]any
}

// NewTopology quantizes and encodes the inputs into one topology with
// deduplicated arcs. Each ring becomes one arc; rings with identical
// (or reversed) quantized coordinates share a single stored arc.
func NewTopology(inputs []TopoInput, quantization float64) (*Topology, error) {
	if len(inputs) == 0 {
		return nil, eris.New("postprocess: no geometries to encode")
	}
	if quantization < 2 {
		return nil, eris.Errorf("postprocess: quantization must be >= 2, got %g", quantization)
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, in := range inputs {
		if in.Geometry == nil || in.Geometry.NumPolygons() == 0 {
			return nil, eris.Wrapf(model.ErrGeometry, "postprocess: empty geometry %q", in.Name)
		}
		for _, poly := range in.Geometry.Coords() {
			for _, ring := range poly {
				for _, c := range ring {
					minX = math.Min(minX, c[0])
					minY = math.Min(minY, c[1])
					maxX = math.Max(maxX, c[0])
					maxY = math.Max(maxY, c[1])
				}
			}
		}
	}

	scaleX := gridScale(maxX-minX, quantization)
	scaleY := gridScale(maxY-minY, quantization)

	topo := &Topology{
		Type: "Topology",
		Transform: &Transform{
			Scale:     [2]float64{scaleX, scaleY},
			Translate: [2]float64{minX, minY},
		},
		Objects: make(map[string]*TopoObject, len(inputs)),
		BBox:    []float64{minX, minY, maxX, maxY},
	}

	arcIndex := make(map[string]int)
	var quantArcs [][][2]int64

	addArc := func(ring []geom.Coord) int {
		pts := quantizeRing(ring, minX, minY, scaleX, scaleY)
		key := arcKey(pts)
		if idx, ok := arcIndex[key]; ok {
			return idx
		}
		if idx, ok := arcIndex[arcKey(reversePts(pts))]; ok {
			return ^idx // complement encodes reversed traversal
		}
		idx := len(quantArcs)
		arcIndex[key] = idx
		quantArcs = append(quantArcs, pts)
		return idx
	}

	for _, in := range inputs {
		tg := &TopoGeometry{Type: "MultiPolygon", Properties: in.Properties}
		for _, poly := range in.Geometry.Coords() {
			polyArcs := make([][]int, 0, len(poly))
			for _, ring := range poly {
				polyArcs = append(polyArcs, []int{addArc(ring)})
			}
			tg.Arcs = append(tg.Arcs, polyArcs)
		}
		topo.Objects[in.Name] = &TopoObject{
			Type:       "GeometryCollection",
			Geometries: []*TopoGeometry{tg},
		}
	}

	topo.Arcs = make([][][2]int64, len(quantArcs))
	for i, pts := range quantArcs {
		topo.Arcs[i] = deltaEncode(pts)
	}
	return topo, nil
}

// DecodeObject reconstructs the named object's first geometry as a
// MultiPolygon in absolute (dequantized) coordinates.
func (t *Topology) DecodeObject(name string) (*geom.MultiPolygon, error) {
	obj, ok := t.Objects[name]
	if !ok {
		return nil, eris.Errorf("postprocess: topology has no object %q", name)
	}
	if len(obj.Geometries) == 0 {
		return nil, eris.Errorf("postprocess: object %q has no geometries", name)
	}
	tg := obj.Geometries[0]

	absolute := make([][][2]int64, len(t.Arcs))
	for i, arc := range t.Arcs {
		absolute[i] = deltaDecode(arc)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, polyArcs := range tg.Arcs {
		rings := make([][]geom.Coord, 0, len(polyArcs))
		for _, ringArcs := range polyArcs {
			var ring []geom.Coord
			for _, ref := range ringArcs {
				idx, reversed := ref, false
				if idx < 0 {
					idx, reversed = ^idx, true
				}
				if idx >= len(absolute) {
					return nil, eris.Errorf("postprocess: arc index %d out of range", idx)
				}
				pts := absolute[idx]
				if reversed {
					pts = reversePts(pts)
				}
				for pi, p := range pts {
					if pi == 0 && len(ring) > 0 {
						continue // joint vertex between consecutive arcs
					}
					ring = append(ring, geom.Coord{
						t.Transform.Translate[0] + float64(p[0])*t.Transform.Scale[0],
						t.Transform.Translate[1] + float64(p[1])*t.Transform.Scale[1],
					})
				}
			}
			rings = append(rings, ring)
		}
		p := geom.NewPolygon(geom.XY)
		if _, err := p.SetCoords(rings); err != nil {
			return nil, eris.Wrap(err, "postprocess: decode polygon")
		}
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrap(err, "postprocess: push decoded polygon")
		}
	}
	return mp, nil
}

func gridScale(extent, quantization float64) float64 {
	if extent <= 0 {
		return 1
	}
	return extent / (quantization - 1)
}

// quantizeRing snaps ring coordinates onto the integer grid, dropping
// consecutive duplicates that quantization collapses.
func quantizeRing(ring []geom.Coord, minX, minY, scaleX, scaleY float64) [][2]int64 {
	pts := make([][2]int64, 0, len(ring))
	for _, c := range ring {
		p := [2]int64{
			int64(math.Round((c[0] - minX) / scaleX)),
			int64(math.Round((c[1] - minY) / scaleY)),
		}
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		pts = append(pts, p)
	}
	return pts
}

func deltaEncode(pts [][2]int64) [][2]int64 {
	out := make([][2]int64, len(pts))
	var px, py int64
	for i, p := range pts {
		out[i] = [2]int64{p[0] - px, p[1] - py}
		px, py = p[0], p[1]
	}
	return out
}

func deltaDecode(arc [][2]int64) [][2]int64 {
	out := make([][2]int64, len(arc))
	var x, y int64
	for i, d := range arc {
		x += d[0]
		y += d[1]
		out[i] = [2]int64{x, y}
	}
	return out
}

func reversePts(pts [][2]int64) [][2]int64 {
	out := make([][2]int64, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func arcKey(pts [][2]int64) string {
	var b strings.Builder
	for _, p := range pts {
		fmt.Fprintf(&b, "%d,%d;", p[0], p[1])
	}
	return b.String()
}
