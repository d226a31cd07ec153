package batch

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/problem"
	"github.com/pilosa/mnmode/weights"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, concurrency, cacheSize int) (*Runner, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r, err := NewRunner(concurrency, cacheSize, logger)
	require.NoError(t, err)
	return r, hook
}

func generated(t *testing.T, count int) []*problem.Problem {
	t.Helper()
	g := weights.Generator{Kind: weights.KindUniform, Seed: 21}
	problems := make([]*problem.Problem, count)
	for i := range problems {
		p, err := g.Vector(2+i%13, uint64(i))
		require.NoError(t, err)
		problems[i] = &problem.Problem{Name: fmt.Sprintf("p%d", i), N: 1 + i*17, P: p}
	}
	return problems
}

func TestRunMatchesSequential(t *testing.T) {
	r, _ := newTestRunner(t, 4, 0)
	problems := generated(t, 50)

	sols, err := r.Run(context.Background(), problems)
	require.NoError(t, err)
	require.Len(t, sols, len(problems))

	var f multinomial.Finder
	for i, p := range problems {
		want, err := f.Find(p.N, p.P)
		require.NoError(t, err)
		sol := sols[i]
		assert.Equal(t, p.Name, sol.Name)
		assert.Empty(t, sol.Error)
		assert.Equal(t, want.Counts, sol.Counts, p.Name)
		assert.Equal(t, want.Threshold, sol.Threshold, p.Name)
		assert.InDelta(t, multinomial.LogPMF(want.Counts, p.P), sol.LogPMF, 1e-12)
	}
}

func TestSolveWeights(t *testing.T) {
	r, _ := newTestRunner(t, 1, 0)
	r.Finder = &multinomial.Finder{Tolerance: -1}
	p := &problem.Problem{Name: "weights", N: 10, P: []float64{5, 3, 2}}
	sol := r.Solve(p)
	require.Empty(t, sol.Error)
	assert.Equal(t, []int{5, 3, 2}, sol.Counts)
	// unnormalized weights still give a finite value, reported as is
	want := multinomial.LogPMF(sol.Counts, p.P)
	assert.False(t, math.IsInf(want, 0) || math.IsNaN(want))
	assert.Equal(t, want, sol.LogPMF)
}

func TestSolveRecordsErrors(t *testing.T) {
	r, hook := newTestRunner(t, 1, 0)
	sols, err := r.Run(context.Background(), []*problem.Problem{
		{Name: "ok", N: 10, P: []float64{0.5, 0.3, 0.2}},
		{Name: "zero", N: 3, P: []float64{0.5, 0, 0.5}},
		{Name: "unnormalized", N: 3, P: []float64{0.5, 0.6}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 2}, sols[0].Counts)
	assert.Contains(t, sols[1].Error, "positive")
	assert.Nil(t, sols[1].Counts)
	assert.Contains(t, sols[2].Error, "sum to 1")

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestSolveLowerBound(t *testing.T) {
	r, _ := newTestRunner(t, 1, 0)
	x0 := 1e6
	sol := r.Solve(&problem.Problem{Name: "x0", N: 7, P: []float64{0.6, 0.25, 0.15}, X0: &x0})
	require.Empty(t, sol.Error)
	assert.Equal(t, []int{4, 2, 1}, sol.Counts)
	assert.Equal(t, 17, sol.Halvings)
}

func TestCache(t *testing.T) {
	r, hook := newTestRunner(t, 1, 8)
	p := []float64{0.6, 0.25, 0.15}
	first := r.Solve(&problem.Problem{Name: "a", N: 7, P: p})
	second := r.Solve(&problem.Problem{Name: "b", N: 7, P: p})
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, "b", second.Name)
	assert.Equal(t, "a", first.Name)
	assert.Equal(t, 1, r.Cache.Len())

	hits := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "served from cache" {
			hits++
			assert.Equal(t, "b", e.Data["problem"])
		}
	}
	assert.Equal(t, 1, hits)

	// a different lower bound is a different problem
	x0 := 3.0
	r.Solve(&problem.Problem{Name: "c", N: 7, P: p, X0: &x0})
	assert.Equal(t, 2, r.Cache.Len())
}

func TestRunCancelled(t *testing.T) {
	r, _ := newTestRunner(t, 2, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, generated(t, 10))
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func TestRunEmpty(t *testing.T) {
	r, _ := newTestRunner(t, 0, 0)
	sols, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sols)
	assert.True(t, r.Concurrency >= 1)
}
