// Package bench times the mode finder over streams of generated problems.
package bench

import (
	"context"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Benchmark is an interface run benchmark components. Benchmarks should Marshal
// to valid JSON so that their configuration may be recorded with their results.
type Benchmark interface {
	Run(ctx context.Context, agentNum int) (*Result, error)
}

// Result holds the output from the run of a benchmark - the Benchmark's Run()
// method may set Stats and Extra, and the RunBenchmark helper function will
// set the Duration, AgentNum, and Configuration. Either may set Error if there
// is an error.
type Result struct {
	Stats         *Stats                 `json:"stats"`
	Extra         map[string]interface{} `json:"extra"`
	AgentNum      int                    `json:"agentnum"`
	Duration      time.Duration          `json:"duration"`
	Configuration interface{}            `json:"configuration"`

	// Error exists so that errors can be correctly marshalled to JSON. It is set using Result.err.Error()
	Error string `json:"error,omitempty"`
}

// NewResult intializes and returns a Result.
func NewResult() *Result {
	return &Result{
		Stats: NewStats(),
		Extra: make(map[string]interface{}),
	}
}

// Add adds the duration to the Result's Stats object.
func (r *Result) Add(d time.Duration) {
	r.Stats.Add(d)
}

// RunBenchmark runs b and fills in the bookkeeping fields of its result.
// The result is never nil; a failed run has its Error set.
func RunBenchmark(ctx context.Context, b Benchmark, agentNum int) *Result {
	start := time.Now()
	result, err := b.Run(ctx, agentNum)
	if result == nil {
		result = NewResult()
	}
	if err != nil {
		result.Error = err.Error()
	}
	result.AgentNum = agentNum
	result.Configuration = b
	result.Duration = time.Since(start)
	return result
}

// wrapper type to force human-readable JSON output
type PrettyDuration time.Duration

// MarshalJSON returns a nicely formatted duration, instead of it just being
// treated like an int.
func (d PrettyDuration) MarshalJSON() ([]byte, error) {
	s := time.Duration(d).String()
	return []byte("\"" + s + "\""), nil
}

// prettyStats mirrors Stats with readable durations.
type prettyStats struct {
	Min    PrettyDuration   `json:"min"`
	Max    PrettyDuration   `json:"max"`
	Mean   PrettyDuration   `json:"mean"`
	StdDev PrettyDuration   `json:"stddev"`
	Total  PrettyDuration   `json:"total-time"`
	Num    int64            `json:"num"`
	All    []PrettyDuration `json:"all,omitempty"`
}

// PrettyResult is a Result whose durations marshal as strings like "1.5ms".
type PrettyResult struct {
	*Result
	Stats    *prettyStats   `json:"stats"`
	Duration PrettyDuration `json:"duration"`
}

// Prettify wraps r for human-friendly JSON output.
func Prettify(r *Result) *PrettyResult {
	pr := &PrettyResult{Result: r, Duration: PrettyDuration(r.Duration)}
	if s := r.Stats; s != nil {
		pr.Stats = &prettyStats{
			Min:    PrettyDuration(s.Min),
			Max:    PrettyDuration(s.Max),
			Mean:   PrettyDuration(s.Mean),
			StdDev: PrettyDuration(s.StdDev),
			Total:  PrettyDuration(s.Total),
			Num:    s.Num,
		}
		for _, d := range s.All {
			pr.Stats.All = append(pr.Stats.All, PrettyDuration(d))
		}
	}
	return pr
}

// Summarize writes a one-line, digit-grouped summary of r to w.
func Summarize(w io.Writer, r *Result) error {
	p := message.NewPrinter(language.English)
	if r.Error != "" {
		_, err := p.Fprintf(w, "agent %d failed after %v: %s\n", r.AgentNum, r.Duration, r.Error)
		return err
	}
	var num int64
	var mean time.Duration
	if r.Stats != nil {
		num, mean = r.Stats.Num, r.Stats.Mean
	}
	rate, _ := r.Extra["problems-per-second"].(float64)
	_, err := p.Fprintf(w, "agent %d: %d problems in %v, %.0f problems/s, mean %v\n",
		r.AgentNum, num, r.Duration, rate, mean)
	return err
}
