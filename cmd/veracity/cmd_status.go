package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"veracity/internal/logtype"
)

var statusFlags struct {
	caseID string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a case's imports, quality assessments, and verification summaries",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.caseID, "case", "", "Case ID (required)")
	_ = statusCmd.MarkFlagRequired("case")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cs, err := openCase(statusFlags.caseID)
	if err != nil {
		return err
	}
	defer cs.Close()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Case: %s\n\n", statusFlags.caseID)

	fmt.Fprintln(out, "Records:")
	for _, lt := range logtype.All() {
		n, err := cs.CountRows(lt)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Fprintf(out, "  %-15s %d\n", lt.String(), n)
		}
	}

	imports, err := cs.ListImports()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nImports: (%d)\n", len(imports))
	for _, im := range imports {
		fmt.Fprintf(out, "  #%-4d %-40s %-15s imported=%d failed=%d skipped=%d %s\n",
			im.ID, im.SourceID, im.LogType, im.Imported, im.Failed, im.Skipped, im.CreatedAt)
	}

	assessments, err := cs.Assessments()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nQuality assessments: (%d)\n", len(assessments))
	for _, a := range assessments {
		verdict := "passed"
		if !a.Passed {
			verdict = "FAILED"
		}
		fmt.Fprintf(out, "  import #%-4d %-15s score=%.2f %s", a.ImportID, a.LogType, a.Score, verdict)
		if a.Warnings != "" {
			fmt.Fprintf(out, "  (%s)", a.Warnings)
		}
		fmt.Fprintln(out)
	}

	summaries, err := cs.Summaries()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nVerification summaries: (%d)\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(out, "  %-15s %-20s records=%d successes=%d failures=%d indeterminate=%d\n",
			s.LogType, s.Status, s.Records, s.Successes, s.Failures, s.Indeterminate)
		if s.Notes != "" {
			fmt.Fprintf(out, "  %-15s %s\n", "", s.Notes)
		}
	}
	return nil
}
