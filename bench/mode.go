package bench

import (
	"context"
	"runtime"
	"time"

	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/weights"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ModeBenchmark times mode computations over generated problems. Each
// goroutine works through its own stream of vectors, so runs with the same
// configuration and agent number time exactly the same problems.
type ModeBenchmark struct {
	Name        string                   `json:"name"`
	N           int                      `json:"n" help:"Largest number of trials; each problem draws n from [N/2, N]."`
	R           int                      `json:"r" help:"Number of categories."`
	Kind        weights.Kind             `json:"kind" help:"Shape of the probability vectors."`
	ZipfS       float64                  `json:"zipf-s" help:"Zipf exponent."`
	ZipfRatio   float64                  `json:"zipf-ratio" help:"Smallest over largest Zipf weight, in (0, 1)."`
	Ratio       float64                  `json:"ratio" help:"Geometric ratio."`
	Seed        int64                    `json:"seed"`
	Iterations  int                      `json:"iterations" help:"Each goroutine solves this many problems."`
	Concurrency int                      `json:"concurrency" help:"Run this many goroutines concurrently."`
	Selector    multinomial.SelectorKind `json:"selector"`

	Logger logrus.FieldLogger `json:"-"`
}

// NewModeBenchmark returns a ModeBenchmark with default settings.
func NewModeBenchmark() *ModeBenchmark {
	return &ModeBenchmark{
		Name:        "mode",
		N:           100000,
		R:           1000,
		Kind:        weights.KindZipf,
		ZipfS:       1.01,
		ZipfRatio:   0.25,
		Ratio:       0.99,
		Seed:        1,
		Iterations:  100,
		Concurrency: runtime.NumCPU(),
		Logger:      logrus.StandardLogger(),
	}
}

func (b *ModeBenchmark) generator(seed int64) weights.Generator {
	g := weights.Generator{
		Kind:    b.Kind,
		Seed:    seed,
		ZipfS:   b.ZipfS,
		Ratio:   b.Ratio,
		Shuffle: true,
	}
	if b.Kind == weights.KindZipf {
		g.ZipfV = weights.ZipfOffset(b.R, b.ZipfS, b.ZipfRatio)
	}
	return g
}

// Run runs the benchmark.
func (b *ModeBenchmark) Run(ctx context.Context, agentNum int) (*Result, error) {
	result := NewResult()
	result.AgentNum = agentNum
	result.Configuration = b

	if b.N < 2 || b.R < 1 || b.Iterations < 1 || b.Concurrency < 1 {
		return result, errors.Errorf("need n >= 2, r >= 1, iterations >= 1, concurrency >= 1 (got %d, %d, %d, %d)",
			b.N, b.R, b.Iterations, b.Concurrency)
	}
	seed := b.Seed + int64(agentNum)
	if b.Kind == weights.KindZipf && !(b.ZipfRatio > 0 && b.ZipfRatio < 1) {
		return result, errors.Errorf("zipf ratio must be in (0, 1), got %g", b.ZipfRatio)
	}
	// fail on bad generator settings before starting any goroutines
	probe := b.generator(seed)
	if _, err := probe.Vector(b.R, 0); err != nil {
		return result, errors.Wrap(err, "generating problems")
	}
	log := b.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	stats := make([]*Stats, b.Concurrency)
	steps := make([]*NumStats, b.Concurrency)
	halvings := make([]*NumStats, b.Concurrency)
	for i := 0; i < b.Concurrency; i++ {
		i := i
		stats[i], steps[i], halvings[i] = NewStats(), NewNumStats(), NewNumStats()
		eg.Go(func() error {
			return b.solveProblems(ctx, seed, i, stats[i], steps[i], halvings[i])
		})
	}
	err := eg.Wait()
	if err != nil {
		return result, err
	}
	for i := 1; i < b.Concurrency; i++ {
		stats[0].Combine(stats[i])
		steps[0].Combine(steps[i])
		halvings[0].Combine(halvings[i])
	}
	result.Stats = stats[0]
	result.Extra["steps"] = steps[0]
	result.Extra["halvings"] = halvings[0]
	seconds := time.Since(start).Seconds()
	result.Extra["problems-per-second"] = float64(b.Iterations*b.Concurrency) / seconds
	log.WithFields(logrus.Fields{
		"agent":    agentNum,
		"problems": b.Iterations * b.Concurrency,
		"mean":     stats[0].Mean,
	}).Info("mode benchmark complete")
	return result, nil
}

func (b *ModeBenchmark) solveProblems(ctx context.Context, seed int64, worker int, stats *Stats, steps, halvings *NumStats) error {
	g := b.generator(seed)
	src := weights.NewSequence(seed)
	f := multinomial.Finder{Selector: b.Selector}
	half := b.N / 2
	for j := 0; j < b.Iterations; j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := uint64(worker)*uint64(b.Iterations) + uint64(j)
		p, err := g.Vector(b.R, id)
		if err != nil {
			return errors.Wrapf(err, "generating problem %d", id)
		}
		n := half + int(src.BitsAt(weights.OffsetFor(weights.SequenceProblem, 0, 0, id)).Lo%uint64(b.N-half+1))
		start := time.Now()
		res, err := f.Find(n, p)
		stats.Add(time.Since(start))
		if err != nil {
			return errors.Wrapf(err, "solving problem %d", id)
		}
		steps.Add(int64(res.Steps))
		halvings.Add(int64(res.Halvings))
	}
	return nil
}
