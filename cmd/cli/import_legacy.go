package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// legacyFile is the import document.
type legacyFile struct {
	Expenses    []*domain.Expense    `json:"expenses"`
	Investments []*domain.Investment `json:"investments"`
}

var importFile string

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Load expenses and investments into the legacy collections",
	Long: `Reads a JSON file of the form
  {"expenses": [...], "investments": [...]}
and writes the records to the legacy collections used by advice and watch.
Records without a userId are assigned to the current user; records without
an id get a new one. Existing ids are overwritten.`,
	RunE: runImportLegacy,
}

func init() {
	importLegacyCmd.Flags().StringVarP(&importFile, "file", "f", "", "path to the JSON file")
	_ = importLegacyCmd.MarkFlagRequired("file")
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("runImportLegacy: %w", err)
	}
	var doc legacyFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("runImportLegacy: parse %s: %w", importFile, err)
	}

	for _, e := range doc.Expenses {
		e.UserID, e.ID = defaultIDs(e.UserID, e.ID)
	}
	for _, i := range doc.Investments {
		i.UserID, i.ID = defaultIDs(i.UserID, i.ID)
	}

	return withRepository(ctx, func(repo store.Repository) error {
		importer, ok := repo.(store.LegacyImporter)
		if !ok {
			return errors.New("the configured store backend does not support imports")
		}
		if err := importer.ImportExpenses(ctx, doc.Expenses); err != nil {
			return err
		}
		if err := importer.ImportInvestments(ctx, doc.Investments); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expense(s) and %d investment(s)\n", len(doc.Expenses), len(doc.Investments))
		return nil
	})
}

func defaultIDs(userID, id string) (string, string) {
	if userID == "" {
		userID = cfg.Client.UserID
	}
	if id == "" {
		id = uuid.NewString()
	}
	return userID, id
}
