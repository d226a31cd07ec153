package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pilosa/mnmode/batch"
	"github.com/pilosa/mnmode/problem"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// batchMain holds the settings and state of a batch invocation. The runner,
// and so its cache, lives as long as the command does, so watched specs
// that change only a few problems are cheap to re-solve.
type batchMain struct {
	fs          afero.Fs
	stdout      io.Writer
	logger      logrus.FieldLogger
	runner      *batch.Runner
	concurrency int
	cacheSize   int
	format      problem.Format
	human       bool
}

// NewBatchCommand returns the command that solves every problem in one or
// more spec files.
func NewBatchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newBatchCommand(afero.NewOsFs(), stdout, stderr)
}

func newBatchCommand(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	var (
		format string
		watch  bool
	)
	m := &batchMain{fs: fs, stdout: stdout}
	batchCmd := &cobra.Command{
		Use:   "batch [flags] spec...",
		Short: "Solve every problem listed in spec files.",
		Long: `Reads problems from spec files (toml, yaml, or json, by extension) and
solves them concurrently. Solutions are written in the order the problems
appear. A problem that can't be solved is reported in its solution's error
field and doesn't stop the others.

With --watch, batch keeps running after the first pass and solves a spec
again whenever it is rewritten.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := problem.ParseFormat(format)
			if err != nil {
				return err
			}
			m.format = f
			m.logger = newLogger(cmd, stderr)
			m.runner, err = batch.NewRunner(m.concurrency, m.cacheSize, m.logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			if err := m.solveFiles(ctx, args...); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return m.watch(ctx, args)
		},
	}

	flags := batchCmd.Flags()
	flags.IntVar(&m.concurrency, "concurrency", 0, "Number of problems to solve at once; 0 means one per CPU.")
	flags.IntVar(&m.cacheSize, "cache", 1024, "Number of solutions to remember; 0 disables the cache.")
	flags.StringVar(&format, "format", "json", "Output format: json, yaml, or toml.")
	flags.BoolVar(&m.human, "human", true, "Indent json output.")
	flags.BoolVar(&watch, "watch", false, "Solve specs again when they change, until interrupted.")
	return batchCmd
}

// solveFiles reads and solves the given specs, then writes all of their
// solutions together.
func (m *batchMain) solveFiles(ctx context.Context, paths ...string) error {
	var all []*problem.Solution
	for _, path := range paths {
		spec, err := problem.ReadSpec(m.fs, path)
		if err != nil {
			return err
		}
		r := *m.runner
		r.Finder = spec.Finder()
		sols, err := r.Run(ctx, spec.Problems)
		if err != nil {
			return errors.Wrapf(err, "spec %s", path)
		}
		failed := 0
		for _, s := range sols {
			if s.Error != "" {
				failed++
			}
		}
		m.logger.WithFields(logrus.Fields{
			"spec":     path,
			"problems": len(sols),
			"failed":   failed,
		}).Info("solved spec")
		all = append(all, sols...)
	}
	return problem.Encode(m.stdout, m.format, m.human, all)
}

// watch solves each spec again when it's written, until ctx is done. The
// specs' directories are watched rather than the files, so editors that
// save by renaming a new file into place are noticed too.
func (m *batchMain) watch(ctx context.Context, paths []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer w.Close()

	targets := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", path)
		}
		targets[abs] = path
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
		dirs[dir] = true
	}
	m.logger.WithField("specs", len(paths)).Info("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			path, ok := targets[abs]
			if !ok {
				continue
			}
			m.logger.WithField("spec", path).Debug("spec changed")
			if err := m.solveFiles(ctx, path); err != nil {
				// a half-written file fails to parse; the next write will
				// trigger another attempt
				m.logger.WithError(err).WithField("spec", path).Warn("could not solve spec")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.WithError(err).Warn("watch error")
		}
	}
}

func init() {
	subcommandFns["batch"] = NewBatchCommand
}
