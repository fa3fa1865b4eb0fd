package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Request a cooperative pause; a no-op if the job isn't downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.PauseJob(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("hlsdl: pause %s: %w", args[0], err)
		}
		return nil
	},
}
