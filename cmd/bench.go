package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pilosa/mnmode/bench"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewBenchCommand returns the command that times the mode finder over
// generated problems.
func NewBenchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	b := bench.NewModeBenchmark()
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Time mode computations over generated problems.",
		Long: `Times the mode finder over a stream of generated problems.

Each goroutine solves its own series of problems: probability vectors of the
chosen kind over r categories, with n drawn from [n/2, n]. The problems
depend only on the flags and agent-num, so runs with identical configurations
and differing agent numbers do different, reproducible work.

The zipf kind is controlled by two parameters. Exponent, in the range
(1, inf), controls the "sharpness" of the distribution, with higher exponent
being sharper. Ratio, in the range (0, 1), controls the maximum variation of
the distribution, with higher ratio being more uniform.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			agentNum, err := flags.GetInt("agent-num")
			if err != nil {
				return err
			}
			b.Logger = newLogger(cmd, stderr)
			result := bench.RunBenchmark(context.Background(), b, agentNum)
			err = PrintResults(cmd, result, stdout)
			if err != nil {
				return err
			}
			if result.Error != "" {
				return errors.New(result.Error)
			}
			return bench.Summarize(stderr, result)
		},
	}

	flags := benchCmd.Flags()
	flags.Int("agent-num", 0, "A unique integer to associate with this invocation of 'bench' to distinguish it from others running concurrently.")
	flags.Bool("human", true, "Make output human friendly.")
	flags.IntVarP(&b.N, "trials", "n", b.N, "Largest number of trials per problem.")
	flags.IntVarP(&b.R, "categories", "r", b.R, "Number of categories per problem.")
	flags.Var(textFlag{v: &b.Kind, typ: "kind"}, "kind", "Shape of the probability vectors: equal, uniform, zipf, or geometric.")
	flags.Float64Var(&b.ZipfS, "zipf-exponent", b.ZipfS, "Zipf exponent parameter.")
	flags.Float64Var(&b.ZipfRatio, "zipf-ratio", b.ZipfRatio, "Zipf probability ratio parameter.")
	flags.Float64Var(&b.Ratio, "ratio", b.Ratio, "Ratio between consecutive geometric weights.")
	flags.Int64Var(&b.Seed, "seed", b.Seed, "Seed for problem generation.")
	flags.IntVar(&b.Iterations, "iterations", b.Iterations, "Number of problems each goroutine solves.")
	flags.IntVar(&b.Concurrency, "concurrency", b.Concurrency, "Number of goroutines.")
	flags.Var(textFlag{v: &b.Selector, typ: "selector"}, "selector", "Greedy selection strategy: heap or linear.")
	return benchCmd
}

// PrintResults encodes the output of a benchmark as json and writes it to the
// given Writer. It takes the "human" flag into account when encoding the
// json.
func PrintResults(cmd *cobra.Command, result *bench.Result, out io.Writer) error {
	human, err := cmd.Flags().GetBool("human")
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if human {
		enc.SetIndent("", "  ")
		return enc.Encode(bench.Prettify(result))
	}
	return enc.Encode(result)
}

func init() {
	subcommandFns["bench"] = NewBenchCommand
}
