package graph

import "github.com/halfamerica/tractcut/internal/model"

// Energy evaluates the partition energy
//
//	E(X) = λ Σ (l_ij/ρ)|x_i−x_j| + (1−λ) Σ (a_i/ρ²) x_i − μ Σ p_i x_i
//
// for a given selection. Used for diagnostics and optimality checks; the
// min-cut solver minimizes exactly this functional.
func Energy(gd *model.GraphData, selected []bool, lambda, mu float64) float64 {
	var boundary float64
	for _, e := range gd.Edges {
		if selected[e.I] != selected[e.J] {
			boundary += lambda * e.Length / gd.Rho
		}
	}

	rhoSq := gd.Rho * gd.Rho
	var areaCost, popReward float64
	for i := range gd.Areas {
		if selected[i] {
			areaCost += (1 - lambda) * gd.Areas[i].LandArea / rhoSq
			popReward += mu * float64(gd.Areas[i].Population)
		}
	}

	return boundary + areaCost - popReward
}
