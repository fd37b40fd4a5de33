package main

import (
	"github.com/spf13/cobra"

	"trans/internal/diag"
	"trans/internal/diagfmt"
	"trans/internal/driver"
)

func newRenderCmd(a *app) *cobra.Command {
	var short, sorted bool
	cmd := &cobra.Command{
		Use:   "render [flags] <diagnostics.toml>",
		Short: "Render diagnostics described in a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := driver.LoadDiagnostics(args[0])
			if err != nil {
				return err
			}

			bag := diag.NewBag(diagnosticLimit(a.cfg))
			for _, d := range doc.Diagnostics {
				if !bag.Add(d) {
					break
				}
			}
			bag.Dedup()
			if sorted {
				bag.Sort()
			}

			out := cmd.OutOrStdout()
			if short {
				if err := diag.FormatShort(out, doc.Files, bag.Items()); err != nil {
					return err
				}
			} else {
				opts, err := emitterOptions(a.cfg, doc.Registry)
				if err != nil {
					return err
				}
				if err := diagfmt.NewEmitter(out, doc.Files, opts).EmitAll(bag.Items()); err != nil {
					return err
				}
			}
			if bag.HasErrors() {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "one line per diagnostic")
	cmd.Flags().BoolVar(&sorted, "sort", false, "order diagnostics by location")
	return cmd
}
