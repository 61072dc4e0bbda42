// Package notionsync mirrors a user's simulated transaction log into a
// Notion database, one page per transaction keyed by Transaction ID.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// Options controls a sync run.
type Options struct {
	// DryRun logs the planned changes without writing to Notion.
	DryRun bool
	// Prune archives pages of the same user whose transaction no longer exists.
	Prune bool
}

// Result counts what a sync run did.
type Result struct {
	Total    int
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// SyncTransactions mirrors the user's transactions into the Notion database.
// Failures on individual pages are logged and counted; the run continues.
func SyncTransactions(ctx context.Context, repo store.TransactionRepository, notion NotionService, databaseID, userID string, opts Options, log zerolog.Logger) (Result, error) {
	var res Result

	log.Info().
		Str("user_id", userID).
		Str("database_id", databaseID).
		Bool("dry_run", opts.DryRun).
		Bool("prune", opts.Prune).
		Msg("Starting Notion transaction sync")

	txs, err := repo.ListTransactions(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: list transactions: %w", err)
	}
	res.Total = len(txs)

	pages, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: query Notion database: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if id := ExtractTransactionID(page); id != "" {
			existing[id] = string(page.ID)
		}
	}

	valid := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = struct{}{}

		pageID, found := existing[tx.ID]
		if err := upsert(ctx, notion, databaseID, pageID, tx, opts.DryRun, log); err != nil {
			log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to sync transaction")
			res.Failed++
			continue
		}
		if found {
			res.Updated++
		} else {
			res.Created++
		}
	}

	if opts.Prune {
		for _, page := range pages {
			id := ExtractTransactionID(page)
			if id == "" || ExtractUserID(page) != userID {
				continue
			}
			if _, ok := valid[id]; ok {
				continue
			}
			if opts.DryRun {
				log.Info().Str("transaction_id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive page")
				res.Archived++
				continue
			}
			if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
				log.Error().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive page")
				res.Failed++
				continue
			}
			res.Archived++
		}
	}

	log.Info().
		Int("total", res.Total).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Notion transaction sync completed")

	return res, nil
}

func upsert(ctx context.Context, notion NotionService, databaseID, pageID string, tx *domain.SimulatedTransaction, dryRun bool, log zerolog.Logger) error {
	props := TransactionProperties(tx)

	if dryRun {
		verb := "create"
		if pageID != "" {
			verb = "update"
		}
		log.Info().Str("transaction_id", tx.ID).Msgf("[DRY RUN] Would %s page", verb)
		return nil
	}

	if pageID != "" {
		if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		return nil
	}
	if _, err := notion.CreatePage(ctx, databaseID, props); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// queryAllPages follows the cursor until the database is exhausted.
func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
