package cmd

import (
	"io"
	"strings"

	"github.com/pilosa/mnmode/batch"
	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/problem"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// NewSolveCommand returns the command that solves a single problem given on
// the command line.
func NewSolveCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		n        int
		x0       float64
		format   string
		human    bool
		finder   multinomial.Finder
		selector = textFlag{v: &finder.Selector, typ: "selector"}
	)
	solveCmd := &cobra.Command{
		Use:   "solve [flags] p1 p2 ...",
		Short: "Compute the mode of one multinomial distribution.",
		Long: `Computes the most likely outcome of n trials over the categories whose
probabilities are given as arguments. Probabilities may be separated by
spaces or commas:

	mnmode solve -n 10 0.5 0.3 0.2
	mnmode solve -n 10 0.5,0.3,0.2

Unless --tolerance is negative, the probabilities must sum to 1.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProbabilities(args)
			if err != nil {
				return err
			}
			f, err := problem.ParseFormat(format)
			if err != nil {
				return err
			}
			prob := &problem.Problem{Name: "solve", N: n, P: p}
			if x0 != 0 {
				prob.X0 = &x0
			}
			runner, err := batch.NewRunner(1, 0, newLogger(cmd, stderr))
			if err != nil {
				return err
			}
			runner.Finder = &finder
			sol := runner.Solve(prob)
			if sol.Error != "" {
				return errors.New(sol.Error)
			}
			return problem.Encode(stdout, f, human, []*problem.Solution{sol})
		},
	}

	flags := solveCmd.Flags()
	flags.IntVarP(&n, "trials", "n", 1, "Number of trials.")
	flags.Float64Var(&x0, "x0", 0, "Starting lower bound for the threshold search; 0 means n.")
	flags.Float64Var(&finder.Tolerance, "tolerance", multinomial.DefaultTolerance, "Allowed deviation of sum(p) from 1; negative disables the check.")
	flags.Var(selector, "selector", "Greedy selection strategy: heap or linear.")
	flags.StringVar(&format, "format", "json", "Output format: json, yaml, or toml.")
	flags.BoolVar(&human, "human", true, "Indent json output.")
	return solveCmd
}

// parseProbabilities reads probabilities from arguments, each of which may
// hold several comma separated values.
func parseProbabilities(args []string) ([]float64, error) {
	var p []float64
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := cast.ToFloat64E(field)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing probability %q", field)
			}
			p = append(p, v)
		}
	}
	if len(p) == 0 {
		return nil, errors.New("no probabilities given")
	}
	return p, nil
}

func init() {
	subcommandFns["solve"] = NewSolveCommand
}
