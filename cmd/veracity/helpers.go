package main

import (
	"fmt"
	"os"

	"veracity/internal/ledger"
	"veracity/internal/store"
)

// openCase opens an existing case store, refusing to create one as a side
// effect of a read command.
func openCase(caseID string) (*store.CaseStore, error) {
	if caseID == "" {
		return nil, fmt.Errorf("--case is required")
	}
	if _, err := os.Stat(store.Path(cfg.DataDir, caseID)); err != nil {
		return nil, fmt.Errorf("case %s not found under %s (create it with 'veracity case new')", caseID, cfg.DataDir)
	}
	return store.Open(cfg.DataDir, caseID)
}

func openLedger() (*ledger.Ledger, error) {
	return ledger.Open(cfg.LedgerPath)
}
