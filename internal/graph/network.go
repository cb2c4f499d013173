package graph

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/halfamerica/tractcut/internal/model"
)

// Params are the two weights of one flow-network construction: λ (surface
// tension) trades boundary-length cost against area cost, μ is the reward
// per unit population.
type Params struct {
	Lambda float64
	Mu     float64
}

// NLink is a symmetric capacity between two adjacent area nodes,
// penalizing a cut that separates them.
type NLink struct {
	I, J int
	Cap  float64
}

// Network is the directed capacitated graph for one (λ, μ) min-cut solve:
// one node per area plus implicit source and sink terminals. It is a plain
// arc list so solver backends stay interchangeable.
//
// The network encodes the energy
//
//	E(X) = λ Σ (l_ij/ρ)|x_i−x_j| + (1−λ) Σ (a_i/ρ²) x_i − μ Σ p_i x_i
//
// whose minimizer is the source side of the minimum s-t cut.
type Network struct {
	NumAreas   int
	SourceCaps []float64 // source→i, μ·p_i
	SinkCaps   []float64 // i→sink, (1−λ)·a_i/ρ²
	NLinks     []NLink   // λ·l_ij/ρ in both directions
	Lambda     float64
	Mu         float64
}

// BuildNetwork constructs the flow network for the given parameters.
// λ = 1 is degenerate (the area-cost term vanishes and the population
// constraint cannot be bracketed) and is rejected before construction;
// λ outside [0, 1) and non-finite or negative μ are invalid arguments.
func BuildNetwork(gd *model.GraphData, p Params) (*Network, error) {
	if p.Lambda == 1 {
		return nil, eris.Wrap(model.ErrDegenerateParameter, "graph: lambda = 1")
	}
	if p.Lambda < 0 || p.Lambda > 1 || math.IsNaN(p.Lambda) {
		return nil, eris.Errorf("graph: lambda must be in [0, 1), got %g", p.Lambda)
	}
	if math.IsNaN(p.Mu) || math.IsInf(p.Mu, 0) {
		return nil, eris.Errorf("graph: mu must be finite, got %g", p.Mu)
	}
	if p.Mu < 0 {
		return nil, eris.Errorf("graph: mu must be non-negative, got %g", p.Mu)
	}

	n := gd.NumNodes()
	net := &Network{
		NumAreas:   n,
		SourceCaps: make([]float64, n),
		SinkCaps:   make([]float64, n),
		NLinks:     make([]NLink, 0, len(gd.Edges)),
		Lambda:     p.Lambda,
		Mu:         p.Mu,
	}

	rhoSq := gd.Rho * gd.Rho
	for i := range gd.Areas {
		net.SourceCaps[i] = p.Mu * float64(gd.Areas[i].Population)
		net.SinkCaps[i] = (1 - p.Lambda) * gd.Areas[i].LandArea / rhoSq
	}
	for _, e := range gd.Edges {
		cap := p.Lambda * e.Length / gd.Rho
		if cap > 0 {
			net.NLinks = append(net.NLinks, NLink{I: e.I, J: e.J, Cap: cap})
		}
	}

	return net, nil
}
