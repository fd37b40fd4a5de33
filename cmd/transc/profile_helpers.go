package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trans/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags.
func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	var p prof.Paths
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"cpu-profile", &p.CPU},
		{"mem-profile", &p.Mem},
		{"runtime-trace", &p.Trace},
	} {
		v, err := cmd.Flags().GetString(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}
	return prof.Start(p)
}
