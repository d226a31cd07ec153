// Package problem reads files describing mode problems, and encodes their
// solutions.
//
// A spec file lists problems, each either with explicit probabilities or
// with settings for generating them:
//
//	version = "1.0"
//	seed = 1
//
//	[[problems]]
//	name = "dice"
//	n = 10
//	p = [0.5, 0.3, 0.2]
//
//	[[problems]]
//	name = "long-tail"
//	n = 100000
//	[problems.generate]
//	kind = "zipf"
//	r = 500
//	zipf-s = 1.1
//	zipf-v = 1
//
// The same structure can be written as YAML or JSON.
package problem

import (
	"fmt"
	"math"

	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/weights"
	"github.com/pkg/errors"
)

// Version is the only spec version currently understood.
const Version = "1.0"

// Spec is the top-level contents of a spec file.
type Spec struct {
	Version   string                   `toml:"version" yaml:"version" mapstructure:"version"`
	Seed      int64                    `toml:"seed" yaml:"seed" mapstructure:"seed"`                // default seed for generated vectors
	Tolerance float64                  `toml:"tolerance" yaml:"tolerance" mapstructure:"tolerance"` // see multinomial.Finder
	Selector  multinomial.SelectorKind `toml:"selector" yaml:"selector" mapstructure:"selector"`
	Problems  []*Problem               `toml:"problems" yaml:"problems" mapstructure:"problems"`
	Path      string                   `toml:"-" yaml:"-" mapstructure:"-"` // where the spec was read from
}

// Problem is a single mode computation. Exactly one of P and Generate
// should be set; Cleanup turns Generate into P.
type Problem struct {
	Name     string        `toml:"name" yaml:"name" mapstructure:"name"`
	N        int           `toml:"n" yaml:"n" mapstructure:"n"`
	P        []float64     `toml:"p" yaml:"p" mapstructure:"p"`
	X0       *float64      `toml:"x0" yaml:"x0" mapstructure:"x0"` // optional lower bound
	Generate *GenerateSpec `toml:"generate" yaml:"generate" mapstructure:"generate"`

	generated bool
}

// GenerateSpec describes a generated probability vector.
type GenerateSpec struct {
	Kind    weights.Kind `toml:"kind" yaml:"kind" mapstructure:"kind"`
	R       int          `toml:"r" yaml:"r" mapstructure:"r"`    // number of categories
	ID      uint64       `toml:"id" yaml:"id" mapstructure:"id"` // which vector, for kinds that vary
	ZipfS   float64      `toml:"zipf-s" yaml:"zipf-s" mapstructure:"zipf-s"`
	ZipfV   float64      `toml:"zipf-v" yaml:"zipf-v" mapstructure:"zipf-v"`
	Ratio   float64      `toml:"ratio" yaml:"ratio" mapstructure:"ratio"`
	Shuffle bool         `toml:"shuffle" yaml:"shuffle" mapstructure:"shuffle"`
	Seed    *int64       `toml:"seed" yaml:"seed" mapstructure:"seed"` // defaults to the spec's seed
}

func (p *Problem) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.Generate != nil && !p.generated {
		return fmt.Sprintf("%s: n %d, %d %s categories", p.Name, p.N, p.Generate.R, p.Generate.Kind)
	}
	return fmt.Sprintf("%s: n %d, %d categories", p.Name, p.N, len(p.P))
}

// Finder returns a mode finder configured from the spec.
func (s *Spec) Finder() *multinomial.Finder {
	return &multinomial.Finder{Selector: s.Selector, Tolerance: s.Tolerance}
}

// Cleanup checks the spec's version, names unnamed problems, and
// materializes generated probability vectors.
func (s *Spec) Cleanup() error {
	if s.Version != Version {
		if s.Version != "" {
			return errors.Errorf("version must be specified as '%s' (got '%s')", Version, s.Version)
		}
		return errors.Errorf("version must be specified as '%s'", Version)
	}
	if len(s.Problems) == 0 {
		return errors.New("spec lists no problems")
	}
	if math.IsNaN(s.Tolerance) {
		return errors.New("tolerance must be a number")
	}
	seen := make(map[string]struct{}, len(s.Problems))
	for i, p := range s.Problems {
		if p == nil {
			return errors.Errorf("problem %d is empty", i)
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("problem-%d", i)
		}
		if _, ok := seen[p.Name]; ok {
			return errors.Errorf("duplicate problem name '%s'", p.Name)
		}
		seen[p.Name] = struct{}{}
		if err := p.Cleanup(s.Seed); err != nil {
			return errors.Wrapf(err, "problem '%s'", p.Name)
		}
	}
	return nil
}

// Cleanup validates a single problem, generating its probabilities if
// needed. defaultSeed is used when the generate settings carry no seed.
func (p *Problem) Cleanup(defaultSeed int64) error {
	if p.N < 1 {
		return errors.Errorf("n must be at least 1 (got %d)", p.N)
	}
	if p.Generate != nil && !p.generated {
		if len(p.P) > 0 {
			return errors.New("p and generate are mutually exclusive")
		}
		g := p.Generate
		seed := defaultSeed
		if g.Seed != nil {
			seed = *g.Seed
		}
		gen := weights.Generator{
			Kind:    g.Kind,
			Seed:    seed,
			ZipfS:   g.ZipfS,
			ZipfV:   g.ZipfV,
			Ratio:   g.Ratio,
			Shuffle: g.Shuffle,
		}
		v, err := gen.Vector(g.R, g.ID)
		if err != nil {
			return errors.Wrap(err, "generating probabilities")
		}
		p.P, p.generated = v, true
	}
	if len(p.P) == 0 {
		return errors.New("needs either p or generate")
	}
	return nil
}
