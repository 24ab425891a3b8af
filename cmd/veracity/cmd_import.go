package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"veracity/internal/ingest"
	"veracity/internal/quality"
)

var importFlags struct {
	caseID string
}

var importCmd = &cobra.Command{
	Use:   "import <file|dir|archive.zip>",
	Short: "Ingest audit-log exports into a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFlags.caseID, "case", "", "Case ID (required)")
	_ = importCmd.MarkFlagRequired("case")
}

func runImport(cmd *cobra.Command, args []string) error {
	cs, err := openCase(importFlags.caseID)
	if err != nil {
		return err
	}
	defer cs.Close()

	results, err := ingest.New(cs, cfg).ImportSource(cmd.Context(), args[0])
	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.DuplicateSource:
			fmt.Fprintf(out, "%-40s %s: already imported, no effect\n", r.SourceID, r.LogType)
		default:
			fmt.Fprintf(out, "%-40s %s: %d imported, %d duplicates skipped, %d rows failed (%s)\n",
				r.SourceID, r.LogType, r.Imported, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond))
		}
		for _, re := range r.Errors {
			fmt.Fprintf(out, "    %s\n", re.String())
		}
	}

	var gateErr *quality.GateError
	if errors.As(err, &gateErr) {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintln(errOut)
		fmt.Fprintln(errOut, "  ***  QUALITY GATE FAILED  ***")
		fmt.Fprintf(errOut, "  %s\n", gateErr.Error())
		fmt.Fprintln(errOut, "  Nothing from the rejected source was stored.")
		fmt.Fprintln(errOut)
	}
	return err
}
