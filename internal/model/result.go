package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// OptimizationResult is one (λ, μ) min-cut solve: the binary partition and
// its derived statistics. Append-only; never mutated after creation.
type OptimizationResult struct {
	Selected           []bool  `json:"selected"`
	SelectedPopulation int64   `json:"selected_population"`
	SelectedArea       float64 `json:"selected_area_sqm"`
	TotalPopulation    int64   `json:"total_population"`
	TotalArea          float64 `json:"total_area_sqm"`
	PopulationFraction float64 `json:"population_fraction"`
	Lambda             float64 `json:"lambda"`
	Mu                 float64 `json:"mu"`
	FlowValue          float64 `json:"flow_value"`
	Energy             float64 `json:"energy"`
}

// NumSelected counts the areas on the source side of the cut.
func (r *OptimizationResult) NumSelected() int {
	n := 0
	for _, s := range r.Selected {
		if s {
			n++
		}
	}
	return n
}

// MuTrial records one bisection step: the μ tried and the population
// fraction it produced.
type MuTrial struct {
	Mu       float64 `json:"mu"`
	Fraction float64 `json:"fraction"`
}

// SearchResult is the outcome of tuning μ for one λ.
type SearchResult struct {
	Result     OptimizationResult `json:"result"`
	Iterations int                `json:"iterations"`
	History    []MuTrial          `json:"history"`
	Converged  bool               `json:"converged"`
}

// LambdaEntry holds one λ's search outcome plus timing and the per-λ
// success flag used by the sweep failure policy.
type LambdaEntry struct {
	Lambda    float64       `json:"lambda"`
	Search    *SearchResult `json:"search,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
}

// SweepResult aggregates one λ-grid sweep. Entries are ordered by λ and
// keyed uniquely; given the same GraphData and grid the sweep is a pure
// function, so the whole value is safe to persist and reuse.
type SweepResult struct {
	Lambdas         []float64     `json:"lambdas"`
	Entries         []LambdaEntry `json:"entries"`
	TotalIterations int           `json:"total_iterations"`
	TotalElapsed    time.Duration `json:"total_elapsed_ns"`
	AllConverged    bool          `json:"all_converged"`
}

// Entry returns the entry for the given λ, or nil if the sweep has none.
func (s *SweepResult) Entry(lambda float64) *LambdaEntry {
	for i := range s.Entries {
		if s.Entries[i].Lambda == lambda {
			return &s.Entries[i]
		}
	}
	return nil
}

// DissolveResult is the merged geometry of one λ's selection.
type DissolveResult struct {
	Geometry     *geom.MultiPolygon
	NumParts     int
	TotalAreaSqm float64
	NumTracts    int
}

// SimplifyResult is a simplified geometry with vertex-count diagnostics.
type SimplifyResult struct {
	Geometry              *geom.MultiPolygon
	OriginalVertexCount   int
	SimplifiedVertexCount int
	ReductionPercent      float64
}

// ExportResult describes one written TopoJSON artifact.
type ExportResult struct {
	Path          string
	FileSizeBytes int64
	LambdaValue   float64
	ObjectName    string
}
