/*
mnfind computes the mode of a single multinomial distribution.

	mnfind -n 10 0.5 0.3 0.2

It prints the most likely counts, along with the threshold they were read
from, in json, yaml, or toml.
*/
package main

import (
	"fmt"
	"os"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/mnmode/multinomial"
	"github.com/pilosa/mnmode/problem"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	flag "github.com/spf13/pflag"
)

// Config describes the overall configuration of the tool.
type Config struct {
	N         int     `help:"number of trials"`
	Start     float64 `help:"starting lower bound for the threshold search; 0 means n"`
	Selector  string  `help:"greedy selection strategy: heap or linear"`
	Tolerance float64 `help:"allowed deviation of sum(p) from 1; negative disables the check"`
	Format    string  `help:"output format: json, yaml, or toml"`
	Human     bool    `help:"indent json output"`
	Verbose   bool    `help:"log each phase's outcome"`

	flagset *flag.FlagSet
	p       []float64
	finder  multinomial.Finder
	format  problem.Format
}

// Run does validation on the configuration data. Used by
// commandeer.
func (c *Config) Run() error {
	// no error-checking if nothing to check errors on
	if c == nil {
		return nil
	}
	if c.N < 1 {
		return fmt.Errorf("number of trials must be at least 1 (got %d)", c.N)
	}
	if c.Start < 0 {
		return fmt.Errorf("start must not be negative (got %g)", c.Start)
	}
	sel, err := multinomial.ParseSelector(c.Selector)
	if err != nil {
		return err
	}
	c.finder = multinomial.Finder{Selector: sel, Tolerance: c.Tolerance}
	c.format, err = problem.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	args := c.flagset.Args()
	if len(args) < 1 {
		return errors.New("must specify one or more probabilities")
	}
	c.p = make([]float64, len(args))
	for i, arg := range args {
		c.p[i], err = cast.ToFloat64E(arg)
		if err != nil {
			return errors.Wrapf(err, "probability %d", i)
		}
	}
	return nil
}

func (c *Config) solve() (*problem.Solution, error) {
	var (
		res *multinomial.Result
		err error
	)
	if c.Start > 0 {
		res, err = c.finder.FindFrom(c.N, c.p, c.Start)
	} else {
		res, err = c.finder.Find(c.N, c.p)
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"lower-bound": res.LowerBound,
		"halvings":    res.Halvings,
		"steps":       res.Steps,
		"threshold":   res.Threshold,
	}).Debug("found mode")
	return &problem.Solution{
		Name:       "mnfind",
		N:          c.N,
		P:          c.p,
		Counts:     res.Counts,
		Threshold:  res.Threshold,
		LowerBound: res.LowerBound,
		LogPMF:     multinomial.LogPMF(res.Counts, c.p),
		Halvings:   res.Halvings,
		Steps:      res.Steps,
	}, nil
}

func main() {
	// Conf defines the default/initial values for config, which
	// can be overridden by command line options.
	conf := &Config{
		N:         1,
		Selector:  multinomial.SelectorHeap.String(),
		Tolerance: multinomial.DefaultTolerance,
		Format:    string(problem.FormatJSON),
		Human:     true,
	}
	conf.flagset = flag.NewFlagSet("", flag.ContinueOnError)

	err := commandeer.RunArgs(conf.flagset, conf, os.Args[1:])
	if err != nil {
		logrus.Fatalf("parsing arguments: %s", err)
	}
	if conf.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	sol, err := conf.solve()
	if err != nil {
		logrus.Fatalf("finding mode: %v", err)
	}
	err = problem.Encode(os.Stdout, conf.format, conf.Human, []*problem.Solution{sol})
	if err != nil {
		logrus.Fatalf("writing result: %v", err)
	}
}
