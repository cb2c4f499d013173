package sweep

import "github.com/rotisserie/eris"

// Grid expands an evenly spaced λ grid: start inclusive, stop exclusive.
// λ = 1 can never appear in a grid because the flow construction is
// degenerate there.
func Grid(start, stop, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, eris.Errorf("sweep: step must be positive, got %g", step)
	}
	if start < 0 || start >= 1 {
		return nil, eris.Errorf("sweep: start must be in [0, 1), got %g", start)
	}
	if stop > 1 {
		return nil, eris.Errorf("sweep: stop must be <= 1, got %g", stop)
	}

	var grid []float64
	// Index-based stepping avoids accumulating float error across the grid.
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v >= stop || v >= 1 {
			break
		}
		grid = append(grid, v)
	}
	if len(grid) == 0 {
		return nil, eris.Errorf("sweep: empty grid for [%g, %g) step %g", start, stop, step)
	}
	return grid, nil
}

// ValidateLambdas checks an explicit λ list: values in [0, 1), unique.
func ValidateLambdas(lambdas []float64) error {
	if len(lambdas) == 0 {
		return eris.New("sweep: no lambda values")
	}
	seen := make(map[float64]bool, len(lambdas))
	for _, l := range lambdas {
		if l < 0 || l >= 1 {
			return eris.Errorf("sweep: lambda %g outside [0, 1)", l)
		}
		if seen[l] {
			return eris.Errorf("sweep: duplicate lambda %g", l)
		}
		seen[l] = true
	}
	return nil
}
