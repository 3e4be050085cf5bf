package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display mortwatch version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mortwatch v%s\n", version)
			_, _ = fmt.Fprintf(out, "commit: %s\n", commit)
			_, _ = fmt.Fprintf(out, "built:  %s\n", buildDate)
			_, _ = fmt.Fprintln(out, "Mortality spike and turning point detection built with Go and DuckDB")
		},
	}
}
