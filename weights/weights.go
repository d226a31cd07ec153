// Package weights builds reproducible category probability vectors for
// exercising the mode finder: equal, uniformly random, Zipf-shaped, and
// geometric. For a given Generator, the same (r, id) always yields the same
// vector.
package weights

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Kind selects the shape of generated vectors.
type Kind int

const (
	// KindEqual gives every category 1/r.
	KindEqual Kind = iota
	// KindUniform draws a vector uniformly from the probability simplex.
	KindUniform
	// KindZipf weights category i by (v+i)^-s.
	KindZipf
	// KindGeometric weights category i by ratio^i.
	KindGeometric
)

var kindNames = map[Kind]string{
	KindEqual:     "equal",
	KindUniform:   "uniform",
	KindZipf:      "zipf",
	KindGeometric: "geometric",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a name to a Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, v := range kindNames {
		if v == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown vector kind %q (want equal, uniform, zipf, or geometric)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, errors.Errorf("unknown vector kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Generator produces probability vectors of a given Kind. It sets up its
// sequence lazily on first use, so a Generator is not safe for concurrent
// use; give each goroutine its own.
type Generator struct {
	Kind    Kind    `json:"kind"`
	Seed    int64   `json:"seed"`
	ZipfS   float64 `json:"zipf-s"`  // Zipf exponent, > 0
	ZipfV   float64 `json:"zipf-v"`  // Zipf offset, > 0
	Ratio   float64 `json:"ratio"`   // geometric ratio, in (0, 1]
	Shuffle bool    `json:"shuffle"` // permute categories, varying with id

	src     Sequence
	srcSeed int64
}

func (g *Generator) source() Sequence {
	if g.src == nil || g.srcSeed != g.Seed {
		g.src, g.srcSeed = NewSequence(g.Seed), g.Seed
	}
	return g.src
}

// Vector returns a normalized vector of r strictly positive probabilities.
// The id picks one of many vectors for the same settings; equal, Zipf, and
// geometric vectors only depend on it when shuffled.
func (g *Generator) Vector(r int, id uint64) ([]float64, error) {
	if r < 1 {
		return nil, errors.Errorf("vector length must be at least 1, got %d", r)
	}
	w := make([]float64, r)
	switch g.Kind {
	case KindEqual:
		for i := range w {
			w[i] = 1
		}
	case KindUniform:
		// normalized exponential draws are uniform on the simplex.
		src := g.source()
		for i := range w {
			w[i] = -math.Log(Float64At(src, OffsetFor(SequenceUniform, 0, uint32(i), id)))
		}
	case KindZipf:
		if !(g.ZipfS > 0) || !(g.ZipfV > 0) {
			return nil, errors.Errorf("zipf needs s > 0 and v > 0, got s %g, v %g", g.ZipfS, g.ZipfV)
		}
		for i := range w {
			w[i] = math.Exp(-g.ZipfS * math.Log(g.ZipfV+float64(i)))
		}
	case KindGeometric:
		if !(g.Ratio > 0) || g.Ratio > 1 {
			return nil, errors.Errorf("geometric ratio must be in (0, 1], got %g", g.Ratio)
		}
		for i := range w {
			w[i] = math.Pow(g.Ratio, float64(i))
		}
	default:
		return nil, errors.Errorf("unknown vector kind %d", int(g.Kind))
	}
	if g.Shuffle {
		g.shuffle(w, id)
	}
	return Normalize(w)
}

// shuffle is a Fisher-Yates shuffle driven by the sequence, so a given id
// always produces the same permutation.
func (g *Generator) shuffle(w []float64, id uint64) {
	src := g.source()
	for i := len(w) - 1; i > 0; i-- {
		j := int(src.BitsAt(OffsetFor(SequenceShuffle, 0, uint32(i), id)).Lo % uint64(i+1))
		w[i], w[j] = w[j], w[i]
	}
}

// ZipfOffset converts a ratio into the Zipf offset v for r categories and
// exponent s. The ratio, in (0, 1), is the smallest weight divided by the
// largest, which is easier to reason about than v since it doesn't depend
// on r. Small ratios give the most skewed vectors for a given (r, s),
// ratios near 1 the most nearly equal ones. A single category has no
// smallest weight to speak of, so any r below 2 gets offset 1.
func ZipfOffset(r int, s, ratio float64) float64 {
	if r < 2 {
		return 1
	}
	z := math.Pow(ratio, 1/s)
	return z * float64(r-1) / (1 - z)
}

// Normalize scales w to sum to 1. Every weight must be positive and finite,
// and stay positive after scaling.
func Normalize(w []float64) ([]float64, error) {
	if len(w) == 0 {
		return nil, errors.New("cannot normalize an empty vector")
	}
	var sum float64
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, errors.Errorf("weight %d is %g, must be positive and finite", i, v)
		}
		sum += v
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v / sum
		if out[i] <= 0 {
			return nil, errors.Errorf("weight %d underflows to zero after normalizing", i)
		}
	}
	return out, nil
}
