package problem

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/weights"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlSpec = `
version = "1.0"
seed = 3
selector = "linear"

[[problems]]
name = "dice"
n = 10
p = [0.5, 0.3, 0.2]
x0 = 4.0

[[problems]]
n = 1000
[problems.generate]
kind = "zipf"
r = 20
zipf-s = 1.1
zipf-v = 1.0
`

const yamlSpec = `
version: "1.0"
seed: 3
tolerance: -1
problems:
  - name: weights
    n: 10
    p: [5, 3, 2]
  - name: tail
    n: 50
    generate:
      kind: uniform
      r: 6
      id: 2
`

const jsonSpec = `{
  "version": "1.0",
  "problems": [
    {"name": "coin", "n": "1", "p": [0.5, 0.5]},
    {"name": "geo", "n": 30, "generate": {"kind": "geometric", "r": 5, "ratio": 0.5}}
  ]
}`

func writeFile(t *testing.T, fs afero.Fs, path, contents string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
}

func TestReadSpecTOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/specs/a.toml", tomlSpec)

	s, err := ReadSpec(fs, "/specs/a.toml")
	require.NoError(t, err)
	assert.Equal(t, "/specs/a.toml", s.Path)
	assert.Equal(t, multinomial.SelectorLinear, s.Selector)
	require.Len(t, s.Problems, 2)

	dice := s.Problems[0]
	assert.Equal(t, "dice", dice.Name)
	assert.Equal(t, 10, dice.N)
	assert.Equal(t, []float64{0.5, 0.3, 0.2}, dice.P)
	require.NotNil(t, dice.X0)
	assert.Equal(t, 4.0, *dice.X0)

	gen := s.Problems[1]
	assert.Equal(t, "problem-1", gen.Name)
	require.NotNil(t, gen.Generate)
	assert.Equal(t, weights.KindZipf, gen.Generate.Kind)
	require.Len(t, gen.P, 20)
	assert.True(t, gen.P[0] > gen.P[19], "zipf vector should decrease: %v", gen.P)
}

func TestReadSpecYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "b.yaml", yamlSpec)

	s, err := ReadSpec(fs, "b.yaml")
	require.NoError(t, err)
	assert.Equal(t, -1.0, s.Tolerance)
	require.Len(t, s.Problems, 2)
	assert.Equal(t, 10, s.Problems[0].N)
	assert.Equal(t, []float64{5, 3, 2}, s.Problems[0].P)

	// the generated vector matches what the generator produces directly
	g := weights.Generator{Kind: weights.KindUniform, Seed: 3}
	want, err := g.Vector(6, 2)
	require.NoError(t, err)
	assert.Equal(t, want, s.Problems[1].P)

	f := s.Finder()
	res, err := f.Find(s.Problems[0].N, s.Problems[0].P)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 2}, res.Counts)
}

func TestReadSpecYAMLBareKeys(t *testing.T) {
	// "n" on its own is a YAML 1.1 boolean
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "dice.yml", "version: \"1.0\"\nproblems:\n  - name: dice\n    n: 10\n    p: [0.5, 0.3, 0.2]\n")

	s, err := ReadSpec(fs, "dice.yml")
	require.NoError(t, err)
	require.Len(t, s.Problems, 1)
	assert.Equal(t, "dice", s.Problems[0].Name)
	assert.Equal(t, 10, s.Problems[0].N)
	assert.Equal(t, []float64{0.5, 0.3, 0.2}, s.Problems[0].P)

	writeFile(t, fs, "words.yml", "version: \"1.0\"\nproblems:\n  - n: ten\n    p: [1]\n")
	_, err = ReadSpec(fs, "words.yml")
	assert.Error(t, err)
}

func TestReadSpecJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.json", jsonSpec)

	s, err := ReadSpec(fs, "c.json")
	require.NoError(t, err)
	require.Len(t, s.Problems, 2)
	assert.Equal(t, multinomial.SelectorHeap, s.Selector)
	assert.Equal(t, 1, s.Problems[0].N)
	assert.Equal(t, []float64{0.5, 0.5}, s.Problems[0].P)
	require.Len(t, s.Problems[1].P, 5)
	assert.InDelta(t, 16.0/31, s.Problems[1].P[0], 1e-12)
}

func TestReadSpecErrors(t *testing.T) {
	cases := map[string]string{
		"unknown-key.toml": "version = \"1.0\"\nbogus = 1\n[[problems]]\nn = 1\np = [1.0]\n",
		"unknown-key.yaml": "version: \"1.0\"\nproblems:\n  - n: 1\n    p: [1]\n    bogus: 2\n",
		"no-version.toml":  "[[problems]]\nn = 1\np = [1.0]\n",
		"bad-version.toml": "version = \"2.0\"\n[[problems]]\nn = 1\np = [1.0]\n",
		"no-problems.toml": "version = \"1.0\"\n",
		"zero-n.toml":      "version = \"1.0\"\n[[problems]]\nn = 0\np = [1.0]\n",
		"no-p.toml":        "version = \"1.0\"\n[[problems]]\nn = 3\n",
		"both.yaml":        "version: \"1.0\"\nproblems:\n  - n: 3\n    p: [1]\n    generate: {kind: equal, r: 2}\n",
		"bad-kind.yaml":    "version: \"1.0\"\nproblems:\n  - n: 3\n    generate: {kind: pareto, r: 2}\n",
		"bad-gen.yaml":     "version: \"1.0\"\nproblems:\n  - n: 3\n    generate: {kind: zipf, r: 2}\n",
		"dup.yaml":         "version: \"1.0\"\nproblems:\n  - {name: a, n: 1, p: [1]}\n  - {name: a, n: 1, p: [1]}\n",
		"spec.ini":         "version = 1.0\n",
	}
	fs := afero.NewMemMapFs()
	for name, contents := range cases {
		writeFile(t, fs, name, contents)
		_, err := ReadSpec(fs, name)
		assert.Error(t, err, name)
	}
	_, err := ReadSpec(fs, "missing.toml")
	assert.Error(t, err)
}

func TestCleanupIdempotent(t *testing.T) {
	p := &Problem{N: 5, Generate: &GenerateSpec{Kind: weights.KindEqual, R: 4}}
	require.NoError(t, p.Cleanup(0))
	first := append([]float64(nil), p.P...)
	require.NoError(t, p.Cleanup(0))
	assert.Equal(t, first, p.P)
	assert.Equal(t, ": n 5, 4 categories", p.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, " toml ": FormatTOML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	sols := []*Solution{
		{Name: "dice", N: 10, P: []float64{0.5, 0.3, 0.2}, Counts: []int{5, 3, 2}, Threshold: 10, LowerBound: 5, LogPMF: -2.06, Steps: 6, Halvings: 1},
		{Name: "broken", N: 0, P: []float64{1}, Error: "number of trials must be at least 1"},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, true, sols))
	var decoded solutionList
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Solutions, 2)
	assert.Equal(t, *sols[0], decoded.Solutions[0])
	assert.Equal(t, sols[1].Error, decoded.Solutions[1].Error)
	assert.Contains(t, buf.String(), "\n  ")

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatYAML, false, sols))
	assert.Contains(t, buf.String(), "name: dice")
	assert.Contains(t, buf.String(), "error: number of trials must be at least 1")

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatTOML, false, sols))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "[[solutions]]"), out)
	assert.Contains(t, out, "dice")

	assert.Error(t, Encode(&buf, Format("xml"), false, sols))
}
