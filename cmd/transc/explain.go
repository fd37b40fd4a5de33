package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trans/internal/diag"
)

func newExplainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <CODE>",
		Short: "Show the detailed explanation of a diagnostic code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := diag.ParseCode(strings.ToUpper(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			text, ok := diag.NewRegistry().Find(code)
			if !ok {
				return fmt.Errorf("no extended information for %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n\n%s\n", code.ID(), code.Title(), text)
			return nil
		},
	}
}
