package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"veracity/internal/logtype"
	"veracity/internal/verify"
)

var verifyFlags struct {
	caseID  string
	logType string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run breach verification over a case's committed records",
	RunE:  runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringVar(&verifyFlags.caseID, "case", "", "Case ID (required)")
	f.StringVar(&verifyFlags.logType, "type", "", "Log type to verify (default: every type with records)")
	_ = verifyCmd.MarkFlagRequired("case")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cs, err := openCase(verifyFlags.caseID)
	if err != nil {
		return err
	}
	defer cs.Close()

	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	var types []logtype.LogType
	if verifyFlags.logType != "" {
		lt, err := logtype.Parse(verifyFlags.logType)
		if err != nil {
			return err
		}
		types = []logtype.LogType{lt}
	} else {
		for _, lt := range logtype.All() {
			n, err := cs.CountRows(lt)
			if err != nil {
				return err
			}
			if n > 0 {
				types = append(types, lt)
			}
		}
		if len(types) == 0 {
			return fmt.Errorf("case %s has no records to verify", verifyFlags.caseID)
		}
	}

	v := verify.New(cs, led, cfg)
	out := cmd.OutOrStdout()
	for _, lt := range types {
		rep, err := v.Run(cmd.Context(), lt)
		if err != nil {
			return err
		}
		sum := rep.Summary
		switch sum.Status {
		case verify.StatusBreach:
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut)
			fmt.Fprintf(errOut, "  ***  BREACH DETECTED: %s  ***\n", sum.LogType)
			fmt.Fprintf(errOut, "  %s\n", sum.Notes)
			fmt.Fprintln(errOut)
		case verify.StatusFailed:
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut)
			fmt.Fprintf(errOut, "  ***  VERIFICATION FAILED: %s  ***\n", sum.LogType)
			fmt.Fprintf(errOut, "  %s\n", sum.Notes)
			fmt.Fprintln(errOut)
		}
		fmt.Fprintf(out, "%-15s %-20s records=%d successes=%d failures=%d indeterminate=%d\n",
			sum.LogType, sum.Status, sum.Records, sum.Successes, sum.Failures, sum.Indeterminate)
		if sum.FieldUsed != "" {
			fmt.Fprintf(out, "%-15s field used: %s\n", "", sum.FieldUsed)
		}
	}
	return nil
}
