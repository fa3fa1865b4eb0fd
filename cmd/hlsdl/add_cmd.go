package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addThreads   int
	addOutputDir string
)

var addCmd = &cobra.Command{
	Use:   "add <playlist-url>",
	Short: "Resolve a playlist URL and queue a new job for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		j, err := eng.AddJob(cmd.Context(), args[0], addThreads, addOutputDir)
		if err != nil {
			return fmt.Errorf("hlsdl: add %s: %w", args[0], err)
		}

		fmt.Printf("%s\t%d segments\t%s\n", j.ID, j.TotalSegments, j.Filename)
		return nil
	},
}

func init() {
	addCmd.Flags().IntVar(&addThreads, "threads", 0, "concurrent segment fetchers (defaults to the configured value)")
	addCmd.Flags().StringVar(&addOutputDir, "output", "", "output directory (defaults to the configured value)")
}
