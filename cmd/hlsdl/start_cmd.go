package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamvault/hlsdl/internal/common"
)

var startCmd = &cobra.Command{
	Use:   "start <job-id>",
	Short: "Begin or resume a job, blocking until it reaches a terminal status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		id := args[0]
		if err := eng.StartJob(cmd.Context(), id); err != nil {
			return fmt.Errorf("hlsdl: start %s: %w", id, err)
		}

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-ticker.C:
				jobs, err := eng.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, j := range jobs {
					if j.ID == id && statusIsTerminal(j) {
						return nil
					}
				}
			}
		}
	},
}

func statusIsTerminal(j *common.Job) bool {
	return j.Status.Terminal()
}
