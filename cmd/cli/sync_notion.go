package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/notionsync"
	"github.com/dvloznov/finansmanager/internal/store"
)

// newNotionService is swapped out in tests.
var newNotionService = func(token string) notionsync.NotionService {
	return notionsync.NewNotionClient(token)
}

var (
	notionDatabaseID string
	notionDryRun     bool
	notionPrune      bool
)

var syncNotionCmd = &cobra.Command{
	Use:   "sync-notion",
	Short: "Mirror your transactions into a Notion database",
	Long: `Creates or updates one Notion page per transaction, matched on the
"Transaction ID" property. With --prune, pages of this user whose transaction
no longer exists are archived.`,
	RunE: runSyncNotion,
}

func init() {
	syncNotionCmd.Flags().StringVar(&notionDatabaseID, "database", "", "Notion database ID (defaults to notion.database_id)")
	syncNotionCmd.Flags().BoolVar(&notionDryRun, "dry-run", false, "log changes without writing to Notion")
	syncNotionCmd.Flags().BoolVar(&notionPrune, "prune", false, "archive pages without a matching transaction")
}

func runSyncNotion(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Notion.Token == "" {
		return errors.New("NOTION_TOKEN is not set")
	}
	databaseID := notionDatabaseID
	if databaseID == "" {
		databaseID = cfg.Notion.DatabaseID
	}
	if databaseID == "" {
		return errors.New("no Notion database: set NOTION_DB_ID or pass --database")
	}

	return withRepository(ctx, func(repo store.Repository) error {
		res, err := notionsync.SyncTransactions(ctx, repo, newNotionService(cfg.Notion.Token), databaseID, userID(),
			notionsync.Options{DryRun: notionDryRun, Prune: notionPrune}, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d transaction(s): %d created, %d updated, %d archived, %d failed\n",
			res.Total, res.Created, res.Updated, res.Archived, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d Notion write(s) failed", res.Failed)
		}
		return nil
	})
}
