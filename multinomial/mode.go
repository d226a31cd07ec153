// Package multinomial computes the exact mode of a multinomial distribution:
// the vector of category counts, summing to the number of trials, with the
// highest probability mass.
package multinomial

import (
	"math"

	"github.com/pkg/errors"
)

// Design notes:
//
// This is based on Algorithm I from:
// "Determination of the modes of a Multinomial distribution"
// F. Le Gall [2003], Statistics & Probability Letters 62(4)
// https://www.sciencedirect.com/science/article/pii/S0167715202004303
//
// Every mode has the form k_i = floor(x * p_i) for a single real threshold
// x. The floor-sum, sum(floor(x * p_i)), never decreases as x grows, so the
// search is for the x at which it reaches n. That happens in three phases:
//
//   1. Find a lower bound x0 whose floor-sum is below n, by halving.
//   2. Raise the threshold one unit at a time. Category i gains its next
//      unit when the threshold has moved q_i past x0, with
//      q_i = (1 - frac(x0*p_i)) / p_i, and then again every 1/p_i after
//      that. Always taking the category with the smallest pending q_i
//      (lowest index on ties) reaches floor-sum n at the smallest possible
//      threshold.
//   3. Recompute the counts from that threshold alone, rather than handing
//      back the counts that were incremented along the way.

// DefaultTolerance is how far sum(p) may drift from 1 when a Finder has no
// Tolerance set.
const DefaultTolerance = 1e-6

// Finder holds the settings for a mode computation. The zero value is ready
// to use: heap selection, DefaultTolerance.
type Finder struct {
	// Selector picks the strategy for choosing the next category in the
	// greedy phase. Both strategies produce identical output.
	Selector SelectorKind `json:"selector"`
	// Tolerance is the allowed deviation of sum(p) from 1. Zero means
	// DefaultTolerance; a negative value disables the check, which lets
	// callers pass weights proportional to the probabilities.
	Tolerance float64 `json:"tolerance"`
}

// Result describes a computed mode along with the threshold it came from.
type Result struct {
	Counts     []int   `json:"counts"`
	Threshold  float64 `json:"threshold"`   // x, with Counts[i] == floor(x*p[i]) up to boundary ties
	LowerBound float64 `json:"lower-bound"` // the x0 the greedy phase started from
	Halvings   int     `json:"halvings"`    // halvings performed finding the lower bound
	Steps      int     `json:"steps"`       // units assigned by the greedy phase
}

// Mode returns a mode of the multinomial distribution with n trials and
// category probabilities p, starting the lower-bound search from n.
func Mode(n int, p []float64) ([]int, error) {
	var f Finder
	res, err := f.Find(n, p)
	if err != nil {
		return nil, err
	}
	return res.Counts, nil
}

// ModeFrom is Mode with a caller-supplied lower bound x0. If
// sum(floor(x0*p[i])) < n already holds, no halving happens; otherwise x0 is
// halved until it does.
func ModeFrom(n int, p []float64, x0 float64) ([]int, error) {
	var f Finder
	res, err := f.FindFrom(n, p, x0)
	if err != nil {
		return nil, err
	}
	return res.Counts, nil
}

// Find computes the mode using n as the starting lower bound.
func (f *Finder) Find(n int, p []float64) (*Result, error) {
	return f.FindFrom(n, p, float64(n))
}

// FindFrom computes the mode, starting the lower-bound search at x0.
func (f *Finder) FindFrom(n int, p []float64, x0 float64) (*Result, error) {
	if err := Validate(n, p, f.tolerance()); err != nil {
		return nil, err
	}
	if math.IsNaN(x0) || math.IsInf(x0, 0) || x0 <= 0 {
		return nil, errors.Wrapf(ErrInvalidLowerBound, "x0 = %g", x0)
	}
	sel, err := f.Selector.selector()
	if err != nil {
		return nil, err
	}
	s := newState(n, p, x0)
	s.searchLowerBound()
	lower := s.x0
	s.assignGreedy(sel)
	return &Result{
		Counts:     s.recompute(),
		Threshold:  s.x,
		LowerBound: lower,
		Halvings:   s.halvings,
		Steps:      s.steps,
	}, nil
}

func (f *Finder) tolerance() float64 {
	if f == nil || f.Tolerance == 0 {
		return DefaultTolerance
	}
	return f.Tolerance
}

// state is everything one computation owns. It is created per call and
// threaded through the three phases; nothing in it is shared.
type state struct {
	n int
	p []float64

	x0 float64   // current lower bound
	k  []int     // floor counts, incremented by the greedy phase
	f  []float64 // x0*p[i] - k[i] as of the lower-bound search
	q  []float64 // pending threshold increase, relative to x0, per category
	n0 int       // sum(k)
	x  float64   // final threshold

	halvings, steps int
}

func newState(n int, p []float64, x0 float64) *state {
	r := len(p)
	return &state{
		n:  n,
		p:  p,
		x0: x0,
		k:  make([]int, r),
		f:  make([]float64, r),
		q:  make([]float64, r),
	}
}

// searchLowerBound halves x0 until its floor-sum is below n. The sum is
// accumulated in floating point so that an oversized x0 can't overflow the
// integer counts before it has been halved down.
func (s *state) searchLowerBound() {
	for {
		var sum float64
		for _, p := range s.p {
			sum += math.Floor(s.x0 * p)
		}
		if sum < float64(s.n) {
			break
		}
		s.x0 /= 2
		s.halvings++
	}
	s.n0 = 0
	for i, p := range s.p {
		v := s.x0 * p
		fl := math.Floor(v)
		s.k[i] = int(fl)
		s.f[i] = v - fl
		s.n0 += s.k[i]
	}
}

// assignGreedy hands out the remaining n - n0 units, each to the category
// whose next unit needs the smallest increase in threshold, and records the
// threshold at which the last unit was handed out.
func (s *state) assignGreedy(sel selector) {
	for i, p := range s.p {
		s.q[i] = (1 - s.f[i]) / p
	}
	sel.init(s.q)
	for s.n0 < s.n {
		a := sel.min()
		s.k[a]++
		s.n0++
		s.steps++
		if s.n0 < s.n {
			s.q[a] += 1 / s.p[a]
			sel.fix()
			continue
		}
		s.x = s.x0 + s.q[a]
	}
}

// recompute derives the counts from the final threshold alone. Categories
// sitting exactly on an integer boundary at x would all round up, while the
// greedy phase only gave the unit to the first of them; rounding can also
// leave x*p[a] a hair under the boundary it was meant to cross. Either way
// the floor-sum misses n, and the difference is settled against the greedy
// counts: excess is taken back from the highest-index categories that
// rounded up past them, shortfall is given to the lowest-index categories
// that fell below them.
func (s *state) recompute() []int {
	out := make([]int, len(s.p))
	sum := 0
	for i, p := range s.p {
		out[i] = int(math.Floor(s.x * p))
		sum += out[i]
	}
	for i := len(out) - 1; i >= 0 && sum > s.n; i-- {
		if d := out[i] - s.k[i]; d > 0 {
			if d > sum-s.n {
				d = sum - s.n
			}
			out[i] -= d
			sum -= d
		}
	}
	for i := 0; i < len(out) && sum < s.n; i++ {
		if d := s.k[i] - out[i]; d > 0 {
			if d > s.n-sum {
				d = s.n - sum
			}
			out[i] += d
			sum += d
		}
	}
	return out
}
