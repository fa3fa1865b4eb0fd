package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print process-wide segment/merge counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		s := eng.Stats()
		fmt.Printf("segments fetched: %d\n", s.SegmentsFetched)
		fmt.Printf("segments failed:  %d\n", s.SegmentsFailed)
		fmt.Printf("active jobs:      %d\n", s.ActiveJobs)
		fmt.Printf("merges succeeded: %d\n", s.MergesSucceeded)
		fmt.Printf("merges fell back: %d\n", s.MergesFellBack)
		fmt.Printf("merges failed:    %d\n", s.MergesFailed)
		return nil
	},
}
