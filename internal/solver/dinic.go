package solver

import (
	"context"
	"strconv"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/flow"
	"github.com/rotisserie/eris"

	"github.com/halfamerica/tractcut/internal/graph"
)

const (
	sourceID = "s"
	sinkID   = "t"

	// capTarget is the fixed-point magnitude the largest capacity is scaled
	// to. lvlath capacities are int64; scaling the float network so the
	// maximum arc sits near 2^40 keeps plenty of relative precision while
	// leaving overflow headroom for capacity sums.
	capTarget = float64(1 << 40)
)

// DinicSolver solves min-cut via lvlath's Dinic max-flow. Capacities are
// fixed-point scaled to int64; the source side of the cut is recovered by
// reachability over the residual graph.
type DinicSolver struct{}

// NewDinic returns the default solver backend.
func NewDinic() *DinicSolver { return &DinicSolver{} }

// MinCut implements Solver. The returned flow value is converted back to
// the network's float capacity units.
func (s *DinicSolver) MinCut(ctx context.Context, net *graph.Network) (Partition, float64, error) {
	scale := capScale(net)

	g, err := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	if err != nil {
		return nil, 0, eris.Wrap(err, "solver: new graph")
	}
	if err := g.AddVertex(sourceID); err != nil {
		return nil, 0, eris.Wrap(err, "solver: add source")
	}
	if err := g.AddVertex(sinkID); err != nil {
		return nil, 0, eris.Wrap(err, "solver: add sink")
	}
	for i := 0; i < net.NumAreas; i++ {
		if err := g.AddVertex(nodeID(i)); err != nil {
			return nil, 0, eris.Wrapf(err, "solver: add node %d", i)
		}
	}

	addArc := func(from, to string, cap float64) error {
		w := quantizeCap(cap, scale)
		if w <= 0 {
			return nil
		}
		_, err := g.AddEdge(from, to, float64(w))
		return err
	}

	for i := 0; i < net.NumAreas; i++ {
		if err := addArc(sourceID, nodeID(i), net.SourceCaps[i]); err != nil {
			return nil, 0, eris.Wrapf(err, "solver: source t-link %d", i)
		}
		if err := addArc(nodeID(i), sinkID, net.SinkCaps[i]); err != nil {
			return nil, 0, eris.Wrapf(err, "solver: sink t-link %d", i)
		}
	}
	for _, nl := range net.NLinks {
		if err := addArc(nodeID(nl.I), nodeID(nl.J), nl.Cap); err != nil {
			return nil, 0, eris.Wrapf(err, "solver: n-link %d-%d", nl.I, nl.J)
		}
		if err := addArc(nodeID(nl.J), nodeID(nl.I), nl.Cap); err != nil {
			return nil, 0, eris.Wrapf(err, "solver: n-link %d-%d", nl.J, nl.I)
		}
	}

	maxFlow, residual, err := flow.Dinic(g, sourceID, sinkID, flow.Options{Ctx: ctx})
	if err != nil {
		return nil, 0, eris.Wrap(err, "solver: dinic max-flow")
	}

	reachable, err := residualReachable(residual)
	if err != nil {
		return nil, 0, err
	}

	part := make(Partition, net.NumAreas)
	for i := range part {
		part[i] = reachable[nodeID(i)]
	}
	return part, maxFlow / scale, nil
}

// capScale picks the multiplier that maps the largest capacity in the
// network to capTarget. A network with no positive capacity gets scale 1;
// its min cut is trivially empty.
func capScale(net *graph.Network) float64 {
	maxCap := 0.0
	for i := 0; i < net.NumAreas; i++ {
		if net.SourceCaps[i] > maxCap {
			maxCap = net.SourceCaps[i]
		}
		if net.SinkCaps[i] > maxCap {
			maxCap = net.SinkCaps[i]
		}
	}
	for _, nl := range net.NLinks {
		if nl.Cap > maxCap {
			maxCap = nl.Cap
		}
	}
	if maxCap <= 0 {
		return 1
	}
	return capTarget / maxCap
}

func quantizeCap(cap, scale float64) int64 {
	if cap <= 0 {
		return 0
	}
	return int64(cap*scale + 0.5)
}

// residualReachable runs BFS from the source over arcs with remaining
// capacity. Vertices reachable in the residual graph form the source side
// of the minimum cut.
func residualReachable(residual *core.Graph) (map[string]bool, error) {
	reached := map[string]bool{sourceID: true}
	queue := []string{sourceID}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		edges, err := residual.Neighbors(u)
		if err != nil {
			return nil, eris.Wrapf(err, "solver: residual neighbors of %s", u)
		}
		for _, e := range edges {
			if e.From != u || e.Weight <= 0 {
				continue
			}
			if !reached[e.To] {
				reached[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return reached, nil
}

func nodeID(i int) string { return strconv.Itoa(i) }
