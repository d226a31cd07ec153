// Package batch solves many mode problems concurrently.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/problem"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner fans problems out to a fixed number of goroutines. Identical
// problems, same n, p, and x0, are solved once and served from the cache
// afterwards.
type Runner struct {
	Finder      *multinomial.Finder
	Concurrency int
	Cache       *lru.Cache // of *problem.Solution, keyed by problem; nil disables caching
	Logger      logrus.FieldLogger
}

// NewRunner returns a Runner with an LRU cache holding up to cacheSize
// solutions. A cacheSize of zero disables caching; a concurrency below 1
// means one goroutine per CPU.
func NewRunner(concurrency, cacheSize int, logger logrus.FieldLogger) (*Runner, error) {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Runner{
		Finder:      &multinomial.Finder{},
		Concurrency: concurrency,
		Logger:      logger,
	}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating solution cache")
		}
		r.Cache = c
	}
	return r, nil
}

// cacheKey identifies a problem by everything that affects its solution.
// Floats are written in full precision so distinct vectors never collide.
func cacheKey(f *multinomial.Finder, p *problem.Problem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%g|%d|", f.Selector, f.Tolerance, p.N)
	if p.X0 != nil {
		b.WriteString(strconv.FormatFloat(*p.X0, 'g', -1, 64))
	}
	for _, v := range p.P {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// Solve computes the solution to a single problem. Failures are reported
// in the solution's Error field rather than returned, so one bad problem
// doesn't stop a batch.
func (r *Runner) Solve(p *problem.Problem) *problem.Solution {
	f := r.Finder
	if f == nil {
		f = &multinomial.Finder{}
	}
	log := r.Logger.WithField("problem", p.Name)

	var key string
	if r.Cache != nil {
		key = cacheKey(f, p)
		if v, ok := r.Cache.Get(key); ok {
			log.Debug("served from cache")
			sol := *v.(*problem.Solution)
			sol.Name = p.Name
			return &sol
		}
	}

	sol := &problem.Solution{Name: p.Name, N: p.N, P: p.P}
	start := time.Now()
	var (
		res *multinomial.Result
		err error
	)
	if p.X0 != nil {
		res, err = f.FindFrom(p.N, p.P, *p.X0)
	} else {
		res, err = f.Find(p.N, p.P)
	}
	if err != nil {
		log.WithError(err).Warn("could not solve")
		sol.Error = err.Error()
		return sol
	}
	sol.Counts = res.Counts
	sol.Threshold = res.Threshold
	sol.LowerBound = res.LowerBound
	sol.Halvings = res.Halvings
	sol.Steps = res.Steps
	sol.LogPMF = multinomial.LogPMF(res.Counts, p.P)
	log.WithFields(logrus.Fields{
		"n":        p.N,
		"r":        len(p.P),
		"steps":    res.Steps,
		"halvings": res.Halvings,
		"elapsed":  time.Since(start),
	}).Debug("solved")

	if r.Cache != nil {
		r.Cache.Add(key, sol)
	}
	return sol
}

// Run solves every problem, returning solutions in the same order. It
// stops early, returning ctx's error, if ctx is cancelled.
func (r *Runner) Run(ctx context.Context, problems []*problem.Problem) ([]*problem.Solution, error) {
	sols := make([]*problem.Solution, len(problems))
	work := make(chan int)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(work)
		for i := range problems {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	workers := r.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(problems) {
		workers = len(problems)
	}
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for i := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				sols[i] = r.Solve(problems[i])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "solving batch")
	}
	return sols, nil
}
