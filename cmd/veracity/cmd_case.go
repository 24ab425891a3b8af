package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"veracity/internal/store"
)

var caseNewFlags struct {
	name string
}

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage investigation cases",
}

var caseNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new case with an isolated store",
	RunE:  runCaseNew,
}

func init() {
	caseNewCmd.Flags().StringVar(&caseNewFlags.name, "name", "", "Human-readable case name")
	caseCmd.AddCommand(caseNewCmd)
}

func runCaseNew(cmd *cobra.Command, _ []string) error {
	caseID := uuid.NewString()
	cs, err := store.Open(cfg.DataDir, caseID)
	if err != nil {
		return fmt.Errorf("create case store: %w", err)
	}
	defer cs.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Case:  %s\n", caseID)
	if caseNewFlags.name != "" {
		fmt.Fprintf(out, "Name:  %s\n", caseNewFlags.name)
	}
	fmt.Fprintf(out, "Store: %s\n", store.Path(cfg.DataDir, caseID))
	return nil
}
