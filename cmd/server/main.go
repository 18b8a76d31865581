package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := serveCmd()

	root := &cobra.Command{
		Use:   "msa-backend",
		Short: "HTTP service wrapping an external multiple sequence aligner",
		Long: `msa-backend accepts FASTA uploads over HTTP, runs the configured
aligner (MUSCLE by default) on them and returns the aligned sequences.

Configuration is read from the environment; see "msa-backend serve --help".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.AddCommand(
		serve,
		alignCmd(),
		versionCmd(),
	)
	return root
}
