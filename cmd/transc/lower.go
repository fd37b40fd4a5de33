package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trans/internal/diag"
	"trans/internal/diagfmt"
	"trans/internal/driver"
	"trans/internal/layout"
	"trans/internal/mono"
	"trans/internal/observ"
	"trans/internal/source"
	"trans/internal/tir"
)

type lowerFlags struct {
	emit      string
	output    string
	ui        string
	metrics   string
	sources   []string
	instances bool
}

func newLowerCmd(a *app) *cobra.Command {
	var lf lowerFlags
	cmd := &cobra.Command{
		Use:   "lower [flags] <crate.tir>",
		Short: "Lower a typed crate to IR",
		Long: `Decode a msgpack crate, lower every non-generic function and every
instance they reach, and write the module as text IR or msgpack.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLower(cmd, args[0], lf)
		},
	}
	cmd.Flags().StringVar(&lf.emit, "emit", "ir", "output kind (ir|mp)")
	cmd.Flags().StringVarP(&lf.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().Int("ptr-size", 8, "target pointer size in bytes (4|8)")
	cmd.Flags().StringVar(&lf.ui, "ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().StringVar(&lf.metrics, "metrics", "", "write Prometheus metrics to file (\"-\" for stderr)")
	cmd.Flags().StringArrayVar(&lf.sources, "source", nil, "source file for diagnostics, in crate file id order (repeatable)")
	cmd.Flags().BoolVar(&lf.instances, "dump-instances", false, "list instances and their use sites on stderr")
	return cmd
}

func (a *app) runLower(cmd *cobra.Command, path string, lf lowerFlags) error {
	lf.emit = strings.ToLower(lf.emit)
	switch lf.emit {
	case "ir", "mp":
	default:
		return fmt.Errorf("unsupported --emit %q (must be ir or mp)", lf.emit)
	}
	mode, err := readUIMode(lf.ui)
	if err != nil {
		return err
	}
	target, err := layout.TargetForPtrSize(a.cfg.Lower.PtrSize)
	if err != nil {
		return err
	}

	var crate *tir.Crate
	err = a.timer.Measure(observ.PhaseDecode, func() error {
		// #nosec G304 -- path is provided by the user
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		crate, err = tir.Decode(bufio.NewReader(f))
		return err
	})
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fs := source.NewFileSet()
	for _, src := range lf.sources {
		if _, err := fs.Load(src); err != nil {
			return err
		}
	}

	var m *driver.Metrics
	if lf.metrics != "" {
		m = driver.NewMetrics()
	}
	opts := driver.Options{
		Jobs:    a.cfg.Lower.Jobs,
		Target:  target,
		Metrics: m,
		Timer:   a.timer,
	}

	ctx := cmd.Context()
	var res *driver.Result
	if shouldUseTUI(mode, lf.output == "" || lf.output == "-") {
		res, err = runLowerWithUI(ctx, crate, opts)
	} else {
		res, err = driver.Lower(ctx, crate, opts)
	}
	if werr := writeMetrics(m, lf.metrics); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return a.reportFailure(cmd, fs, err)
	}

	if lf.instances {
		if err := mono.DumpInstances(cmd.ErrOrStderr(), res.Context.Mono, fs); err != nil {
			return err
		}
	}
	return a.timer.Measure(observ.PhasePrint, func() error {
		return writeModule(cmd.OutOrStdout(), res, lf)
	})
}

// reportFailure renders a lowering failure and, when the tracer keeps a
// ring buffer, the events that led to it.
func (a *app) reportFailure(cmd *cobra.Command, fs *source.FileSet, err error) error {
	opts, oerr := emitterOptions(a.cfg, diag.NewRegistry())
	if oerr != nil {
		return oerr
	}
	d := driver.Diagnose(err)
	if eerr := diagfmt.NewEmitter(cmd.ErrOrStderr(), fs, opts).Emit(&d); eerr != nil {
		return eerr
	}
	if derr := driver.DumpTrace(cmd.Context(), cmd.ErrOrStderr()); derr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", derr)
	}
	return errReported
}

func writeModule(stdout io.Writer, res *driver.Result, lf lowerFlags) (err error) {
	w := stdout
	if lf.output != "" && lf.output != "-" {
		f, cerr := os.Create(lf.output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	if lf.emit == "mp" {
		err = res.Module.Encode(bw)
	} else {
		err = res.Module.Print(bw)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeMetrics(m *driver.Metrics, dest string) error {
	if m == nil || dest == "" {
		return nil
	}
	if dest == "-" {
		m.WritePrometheus(os.Stderr)
		return nil
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	m.WritePrometheus(f)
	return f.Close()
}
