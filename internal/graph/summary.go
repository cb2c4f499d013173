package graph

import "github.com/halfamerica/tractcut/internal/model"

// Summary holds descriptive statistics for a built graph, for status
// output and logs.
type Summary struct {
	NumNodes        int     `json:"num_nodes"`
	NumEdges        int     `json:"num_edges"`
	TotalPopulation int64   `json:"total_population"`
	TotalAreaSqkm   float64 `json:"total_area_sqkm"`
	RhoMeters       float64 `json:"rho_m"`
	MeanBoundaryM   float64 `json:"mean_boundary_m"`
	MaxBoundaryM    float64 `json:"max_boundary_m"`
	MeanNeighbors   float64 `json:"mean_neighbors"`
}

// Summarize computes summary statistics for the graph.
func Summarize(gd *model.GraphData) Summary {
	s := Summary{
		NumNodes:        gd.NumNodes(),
		NumEdges:        gd.NumEdges(),
		TotalPopulation: gd.TotalPopulation,
		TotalAreaSqkm:   gd.TotalArea / 1e6,
		RhoMeters:       gd.Rho,
	}
	if len(gd.Edges) > 0 {
		var sum float64
		for _, e := range gd.Edges {
			sum += e.Length
			if e.Length > s.MaxBoundaryM {
				s.MaxBoundaryM = e.Length
			}
		}
		s.MeanBoundaryM = sum / float64(len(gd.Edges))
	}
	if s.NumNodes > 0 {
		s.MeanNeighbors = 2 * float64(s.NumEdges) / float64(s.NumNodes)
	}
	return s
}
