package model

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph marks graph construction failures: empty input, zero
// total population, or an adjacency structure that cannot be built. Fatal
// for the whole run since every λ depends on the graph.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrDegenerateParameter marks λ = 1, for which the area-cost term
// vanishes and the constraint search cannot bracket the target. Fatal for
// that λ only.
var ErrDegenerateParameter = errors.New("degenerate parameter")

// ErrGeometry marks dissolve/simplify output with invalid topology. Fatal
// for that λ's post-processing only.
var ErrGeometry = errors.New("invalid geometry")

// ConvergenceError reports a binary search that exhausted its iteration
// budget without meeting tolerance. Non-fatal: the sweep failure policy
// decides whether it aborts the sweep or is recorded and skipped.
type ConvergenceError struct {
	Lambda       float64
	Iterations   int
	BestFraction float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("search did not converge for lambda=%g after %d iterations (best fraction %.4f)",
		e.Lambda, e.Iterations, e.BestFraction)
}
