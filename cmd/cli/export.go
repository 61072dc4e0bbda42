package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/archive"
	"github.com/dvloznov/finansmanager/internal/store"
)

// newObjectStore is swapped out in tests.
var newObjectStore = func(ctx context.Context) (archive.ObjectStore, func() error, error) {
	s, err := archive.NewGCSStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your transactions to Cloud Storage",
	Long: `Writes the transaction log as a JSON ledger to
gs://<archive.bucket>/ledgers/<user>/<timestamp>.json and prints its URI.`,
	RunE: runExport,
}

var exportShowCmd = &cobra.Command{
	Use:   "show [gs-uri]",
	Short: "Print a previously exported ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportShow,
}

func init() {
	exportCmd.AddCommand(exportShowCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	objects, closeObjects, err := newObjectStore(ctx)
	if err != nil {
		return err
	}
	defer closeObjects()

	return withRepository(ctx, func(repo store.Repository) error {
		exporter, err := archive.NewExporter(objects, cfg.Archive.Bucket, repo, log)
		if err != nil {
			return err
		}
		uri, ledger, err := exporter.ExportLedger(ctx, userID())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transaction(s) to %s\n", ledger.Count, uri)
		return nil
	})
}

func runExportShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	objects, closeObjects, err := newObjectStore(ctx)
	if err != nil {
		return err
	}
	defer closeObjects()

	ledger, err := archive.ReadLedger(ctx, objects, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:     %s\n", ledger.UserID)
	fmt.Fprintf(out, "Exported: %s\n", ledger.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Currency: %s\n", ledger.Currency)
	fmt.Fprintf(out, "Count:    %d\n", ledger.Count)
	return nil
}
