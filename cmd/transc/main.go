package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trans/internal/config"
	"trans/internal/observ"
	"trans/internal/prof"
	"trans/internal/trace"
	"trans/internal/version"
)

// errReported means the failure was already rendered as diagnostics.
var errReported = errors.New("diagnostics reported")

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg      config.Config
	timer    *observ.Timer
	profiler *prof.Session
	cleanup  func()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "transc",
		Short:         "Lowering engine and diagnostic renderer",
		Long:          `transc lowers typed crates to IR and renders compiler diagnostics`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to transc.toml (default: ./"+config.FileName+" when present)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("error-format", "new", "diagnostic format (new|old|env)")
	pf.String("path-mode", "", "how to print file paths (absolute|relative|basename|auto)")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show (0: no limit)")
	pf.Bool("timings", false, "show timing information")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace encoding (text|ndjson|auto)")
	pf.Int("trace-ring-size", trace.DefaultRingSize, "events kept by the ring tracer")
	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	rootCmd.AddCommand(newLowerCmd(a))
	rootCmd.AddCommand(newRenderCmd(a))
	rootCmd.AddCommand(newExplainCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// setup resolves configuration and tracing once per invocation.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if on, _ := cmd.Flags().GetBool("timings"); on {
		a.timer = observ.NewTimer()
	}
	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	a.cleanup = cleanup
	a.profiler, err = setupProfiling(cmd)
	return err
}

func (a *app) finish() {
	if err := a.profiler.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, "profile:", err)
	}
	if a.timer != nil {
		fmt.Fprint(os.Stderr, a.timer.Summary())
	}
	if a.cleanup != nil {
		a.cleanup()
	}
}

// main builds the command tree and runs it. Failures exit with status 1;
// diagnostics have already been printed by then.
func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.finish()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
