package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"msa-backend/internal/aligner"
	"msa-backend/internal/config"
	"msa-backend/internal/fasta"
)

func alignCmd() *cobra.Command {
	var tool string

	cmd := &cobra.Command{
		Use:   "align <input.fasta> <output.fasta>",
		Short: "Align a local FASTA file with the configured aligner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if tool != "" {
				cfg.AlignerTool = tool
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			records, err := fasta.Parse(in)
			_ = in.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			exec, err := aligner.NewExec(cfg.AlignerTool, cfg.AlignerArgs, cfg.AlignerTimeout)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := exec.Align(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "aligned %d sequences with %s into %s\n", len(records), exec.Name(), args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "aligner executable, overrides ALIGNER_TOOL")

	return cmd
}
