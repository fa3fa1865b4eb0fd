package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every job in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		jobs, err := eng.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, j := range jobs {
			fmt.Printf("%s\t%-12s\t%6.1f%%\t%s\n", j.ID, j.Status, j.Progress, j.Filename)
		}
		return nil
	},
}
