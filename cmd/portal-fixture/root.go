package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portal-fixture",
		Short: "Knowledge-graph portal fixture for end-to-end tests",
		Long: `portal-fixture serves a stand-in for the knowledge-graph portal with the
test-ids and URL formats the browser page objects rely on, backed by CSKG node
data loaded from a TSV file or generated portal test data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading configuration")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewGenerateCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
