package multinomial

import (
	"math"

	"github.com/pkg/errors"
)

// Errors returned by Validate and the Finder methods. They are wrapped with
// details about the offending input; use errors.Cause to compare.
var (
	ErrInvalidTrials      = errors.New("number of trials must be at least 1")
	ErrEmptyProbabilities = errors.New("at least one category probability is required")
	ErrInvalidProbability = errors.New("category probabilities must be positive and finite")
	ErrNotNormalized      = errors.New("category probabilities must sum to 1")
	ErrInvalidLowerBound  = errors.New("lower bound must be positive and finite")
)

// Validate reports whether (n, p) is a problem the mode finder can solve.
// Every p[i] must be positive and finite: a zero probability makes the
// greedy step 1/p[i] infinite, and a negative one keeps the lower-bound
// search from terminating. If tol is non-negative, sum(p) must also be
// within tol of 1.
func Validate(n int, p []float64, tol float64) error {
	if n < 1 {
		return errors.Wrapf(ErrInvalidTrials, "n = %d", n)
	}
	if len(p) == 0 {
		return ErrEmptyProbabilities
	}
	var sum float64
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return errors.Wrapf(ErrInvalidProbability, "p[%d] = %g", i, v)
		}
		sum += v
	}
	if tol >= 0 && math.Abs(sum-1) > tol {
		return errors.Wrapf(ErrNotNormalized, "sum(p) = %.12g, tolerance %g", sum, tol)
	}
	return nil
}
