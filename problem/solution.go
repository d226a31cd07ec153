package problem

import (
	"encoding/json"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Solution is the outcome of solving one Problem. If the problem could
// not be solved, Error describes why and the result fields are empty.
type Solution struct {
	Name       string    `json:"name" yaml:"name" toml:"name"`
	N          int       `json:"n" yaml:"n" toml:"n"`
	P          []float64 `json:"p" yaml:"p" toml:"p"`
	Counts     []int     `json:"counts,omitempty" yaml:"counts,omitempty" toml:"counts,omitempty"`
	Threshold  float64   `json:"threshold" yaml:"threshold" toml:"threshold"`
	LowerBound float64   `json:"lower-bound" yaml:"lower-bound" toml:"lower-bound"`
	LogPMF     float64   `json:"log-pmf" yaml:"log-pmf" toml:"log-pmf"`
	Halvings   int       `json:"halvings" yaml:"halvings" toml:"halvings"`
	Steps      int       `json:"steps" yaml:"steps" toml:"steps"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// Format is an output encoding for solutions.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat maps a name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", errors.Errorf("unknown format %q (want json, yaml, or toml)", name)
}

// solutionList gives TOML a table to hang the solutions from.
type solutionList struct {
	Solutions []Solution `json:"solutions" yaml:"solutions" toml:"solutions"`
}

// Encode writes sols to w. Human output is indented JSON; it has no
// effect on the other formats.
func Encode(w io.Writer, format Format, human bool, sols []*Solution) error {
	list := solutionList{Solutions: make([]Solution, 0, len(sols))}
	for _, s := range sols {
		if s != nil {
			list.Solutions = append(list.Solutions, *s)
		}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		if human {
			enc.SetIndent("", "  ")
		}
		return errors.Wrap(enc.Encode(list), "encoding json")
	case FormatYAML:
		data, err := yaml.Marshal(list)
		if err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		_, err = w.Write(data)
		return err
	case FormatTOML:
		data, err := toml.Marshal(list)
		if err != nil {
			return errors.Wrap(err, "encoding toml")
		}
		_, err = w.Write(data)
		return err
	}
	return errors.Errorf("unknown format %q", string(format))
}
