// Package solver provides the min-cut seam: a narrow interface from flow
// network to binary partition, with a default backend built on the lvlath
// max-flow implementation. Alternate backends can be substituted without
// touching the rest of the optimizer.
package solver

import (
	"context"

	"github.com/halfamerica/tractcut/internal/graph"
)

// Partition assigns each area node to one side of the minimum s-t cut.
// true means source side: the area is selected.
type Partition []bool

// Solver computes a minimum s-t cut for a constructed flow network. The
// contract is: return *a* minimum cut (ties may be resolved arbitrarily,
// but deterministically for a fixed network) and its flow value in the
// network's own capacity units.
type Solver interface {
	MinCut(ctx context.Context, net *graph.Network) (Partition, float64, error)
}
