package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"veracity/internal/store"
)

var timelineFlags struct {
	caseID string
	actor  string
	origin string
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Cross-log activity timeline for an actor or an origin",
	RunE:  runTimeline,
}

func init() {
	f := timelineCmd.Flags()
	f.StringVar(&timelineFlags.caseID, "case", "", "Case ID (required)")
	f.StringVar(&timelineFlags.actor, "actor", "", "Actor (user principal) to trace")
	f.StringVar(&timelineFlags.origin, "origin", "", "Origin (IP address) to trace")
	_ = timelineCmd.MarkFlagRequired("case")
	timelineCmd.MarkFlagsOneRequired("actor", "origin")
	timelineCmd.MarkFlagsMutuallyExclusive("actor", "origin")
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	cs, err := openCase(timelineFlags.caseID)
	if err != nil {
		return err
	}
	defer cs.Close()

	var entries []store.TimelineEntry
	if timelineFlags.actor != "" {
		entries, err = cs.ActivityByActor(timelineFlags.actor)
	} else {
		entries, err = cs.ActivityByOrigin(timelineFlags.origin)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matching activity")
		return nil
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%-25s %-15s actor=%s origin=%s\n", e.EventTime, e.LogType, e.Actor, e.Origin)
	}
	fmt.Fprintf(out, "%d events across all log types\n", len(entries))
	return nil
}
