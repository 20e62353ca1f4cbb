package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/kg"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write portal test data as a CSKG nodes TSV",
		Long: `Generate writes deterministic portal test nodes (portal_test_data:<i>,
labelled "Test node <i>") in the CSKG nodes TSV format.

Examples:
  # 1000 nodes to stdout
  portal-fixture generate

  # 50 nodes with another seed into a file
  portal-fixture generate -n 50 --seed 7 -o nodes.tsv`,
		Args: cobra.NoArgs,
		RunE: runGenerateCmd,
	}

	cmd.Flags().IntP("count", "n", config.DefaultNodeCount, "Number of nodes to generate")
	cmd.Flags().Int64("seed", 1, "Random seed for parts of speech")
	cmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := kg.WriteNodesTSV(w, kg.GenerateTestNodes(count, seed)); err != nil {
		return fmt.Errorf("failed to write nodes: %w", err)
	}
	if output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d nodes to %s\n", count, output)
	}
	return nil
}
