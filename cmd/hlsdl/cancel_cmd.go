package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Abort in-flight fetches and remove the job from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.CancelJob(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("hlsdl: cancel %s: %w", args[0], err)
		}
		return nil
	},
}
