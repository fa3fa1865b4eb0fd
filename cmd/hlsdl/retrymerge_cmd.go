package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retryMergeCmd = &cobra.Command{
	Use:   "retry-merge <job-id>",
	Short: "Re-run the muxer for a completed or errored job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.RetryMergeJob(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("hlsdl: retry-merge %s: %w", args[0], err)
		}
		return nil
	},
}
