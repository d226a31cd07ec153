package weights

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
	"testing"
)

func checkVector(t *testing.T, name string, p []float64, r int) {
	t.Helper()
	if len(p) != r {
		t.Fatalf("%s: expected %d entries, got %d", name, r, len(p))
	}
	var sum float64
	for i, v := range p {
		if !(v > 0) {
			t.Fatalf("%s: entry %d is %g", name, i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("%s: entries sum to %.17g", name, sum)
	}
}

func Test_Kinds(t *testing.T) {
	gens := []Generator{
		{Kind: KindEqual},
		{Kind: KindUniform, Seed: 1},
		{Kind: KindZipf, ZipfS: 1.01, ZipfV: 1},
		{Kind: KindZipf, ZipfS: 2, ZipfV: 10, Shuffle: true},
		{Kind: KindGeometric, Ratio: 0.9},
		{Kind: KindGeometric, Ratio: 1},
	}
	for _, g := range gens {
		for _, r := range []int{1, 2, 17, 500} {
			name := fmt.Sprintf("%s/%d", g.Kind, r)
			p, err := g.Vector(r, 3)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}
			checkVector(t, name, p, r)
		}
	}
}

func Test_ZipfShape(t *testing.T) {
	g := Generator{Kind: KindZipf, ZipfS: 1, ZipfV: 1}
	p, err := g.Vector(4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// weights 1, 1/2, 1/3, 1/4 over a total of 25/12
	want := []float64{12.0 / 25, 6.0 / 25, 4.0 / 25, 3.0 / 25}
	for i := range want {
		if math.Abs(p[i]-want[i]) > 1e-12 {
			t.Fatalf("expected %v, got %v", want, p)
		}
	}
}

func Test_Reproducible(t *testing.T) {
	a := Generator{Kind: KindUniform, Seed: 9}
	b := Generator{Kind: KindUniform, Seed: 9}
	// generate out of order on one side; seekable bits make that irrelevant.
	for _, id := range []uint64{5, 0, 3} {
		if _, err := a.Vector(10, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for id := uint64(0); id < 6; id++ {
		pa, err := a.Vector(10, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pb, err := b.Vector(10, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(pa, pb) {
			t.Fatalf("id %d: vectors differ: %v vs %v", id, pa, pb)
		}
	}
	p0, _ := a.Vector(10, 0)
	p1, _ := a.Vector(10, 1)
	if reflect.DeepEqual(p0, p1) {
		t.Fatalf("different ids produced the same vector %v", p0)
	}
	c := Generator{Kind: KindUniform, Seed: 10}
	pc, _ := c.Vector(10, 0)
	if reflect.DeepEqual(p0, pc) {
		t.Fatalf("different seeds produced the same vector %v", p0)
	}
}

func Test_ShufflePermutes(t *testing.T) {
	plain := Generator{Kind: KindZipf, ZipfS: 1.5, ZipfV: 2}
	shuffled := plain
	shuffled.Shuffle = true
	p, err := plain.Vector(30, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := shuffled.Vector(30, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(p, s) {
		t.Fatalf("shuffle left vector in order")
	}
	sorted := append([]float64(nil), s...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for i := range p {
		if math.Abs(p[i]-sorted[i]) > 1e-15 {
			t.Fatalf("shuffled vector is not a permutation: %v vs %v", p, s)
		}
	}
}

func Test_UniformMean(t *testing.T) {
	g := Generator{Kind: KindUniform, Seed: 2}
	const r, runs = 4, 20000
	var totals [r]float64
	for id := uint64(0); id < runs; id++ {
		p, err := g.Vector(r, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, v := range p {
			totals[i] += v
		}
	}
	for i, total := range totals {
		if mean := total / runs; math.Abs(mean-0.25) > 0.01 {
			t.Fatalf("category %d: mean %f, expected about 0.25", i, mean)
		}
	}
}

func Test_VectorErrors(t *testing.T) {
	cases := []Generator{
		{Kind: KindZipf, ZipfS: 0, ZipfV: 1},
		{Kind: KindZipf, ZipfS: 1, ZipfV: -1},
		{Kind: KindGeometric, Ratio: 0},
		{Kind: KindGeometric, Ratio: 1.5},
		{Kind: KindGeometric, Ratio: 0.01}, // underflows long before r
		{Kind: Kind(99)},
	}
	for _, g := range cases {
		if _, err := g.Vector(2000, 0); err == nil {
			t.Fatalf("%+v: expected error", g)
		}
	}
	g := Generator{Kind: KindEqual}
	if _, err := g.Vector(0, 0); err == nil {
		t.Fatalf("expected error for empty vector")
	}
}

func Test_ParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(" " + name + " ")
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q): got %v, %v", name, got, err)
		}
		var u Kind
		if err := u.UnmarshalText([]byte(name)); err != nil || u != k {
			t.Fatalf("UnmarshalText(%q): got %v, %v", name, u, err)
		}
	}
	if _, err := ParseKind("pareto"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func Test_SequenceSeek(t *testing.T) {
	s := NewSequence(4)
	first := s.Uint64()
	second := s.Uint64()
	old := s.Seek(OffsetFor(SequenceRandSource, 0, 0, 0))
	if want := OffsetFor(SequenceRandSource, 0, 0, 2); old != want {
		t.Fatalf("seek: expected previous offset %s, got %s", want, old)
	}
	if again := s.Uint64(); again != first {
		t.Fatalf("after seek: expected %d, got %d", first, again)
	}
	if again := s.Uint64(); again != second {
		t.Fatalf("after seek: expected %d, got %d", second, again)
	}
	if v := s.Int63(); v < 0 {
		t.Fatalf("Int63 returned negative %d", v)
	}
}

func Test_Float64AtRange(t *testing.T) {
	s := NewSequence(0)
	for i := uint64(0); i < 10000; i++ {
		v := Float64At(s, OffsetFor(SequenceDefault, 0, 0, i))
		if !(v > 0 && v < 1) {
			t.Fatalf("offset %d: %g out of (0, 1)", i, v)
		}
	}
}

func Test_Uint128Inc(t *testing.T) {
	u := Uint128{Lo: ^uint64(0)}
	u.Inc()
	if u != (Uint128{Hi: 1}) {
		t.Fatalf("expected carry into high word, got %s", u)
	}
}

func Test_ZipfOffset(t *testing.T) {
	for _, ratio := range []float64{0.01, 0.25, 0.9} {
		v := ZipfOffset(100, 1.5, ratio)
		g := Generator{Kind: KindZipf, ZipfS: 1.5, ZipfV: v}
		p, err := g.Vector(100, 0)
		if err != nil {
			t.Fatalf("ratio %g: unexpected error: %v", ratio, err)
		}
		if got := p[99] / p[0]; math.Abs(got-ratio) > 1e-9 {
			t.Fatalf("ratio %g: got smallest/largest %g", ratio, got)
		}
	}
}

func Test_ZipfOffsetSingleCategory(t *testing.T) {
	for _, r := range []int{0, 1} {
		if v := ZipfOffset(r, 1.01, 0.25); !(v > 0) {
			t.Fatalf("r %d: expected positive offset, got %g", r, v)
		}
	}
	g := Generator{Kind: KindZipf, ZipfS: 1.01, ZipfV: ZipfOffset(1, 1.01, 0.25)}
	p, err := g.Vector(1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p) != 1 || p[0] != 1 {
		t.Fatalf("expected [1], got %v", p)
	}
}

func Test_GeneratorPerGoroutine(t *testing.T) {
	// each goroutine owns its Generator; equal settings give equal vectors
	const workers = 8
	out := make([][]float64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := Generator{Kind: KindUniform, Seed: 9, Shuffle: true}
			out[i], errs[i] = g.Vector(16, 4)
		}(i)
	}
	wg.Wait()
	for i := range out {
		if errs[i] != nil {
			t.Fatalf("worker %d: unexpected error: %v", i, errs[i])
		}
		if !reflect.DeepEqual(out[i], out[0]) {
			t.Fatalf("worker %d: got %v, worker 0 got %v", i, out[i], out[0])
		}
	}
}
