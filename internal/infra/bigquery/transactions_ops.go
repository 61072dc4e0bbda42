package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// InsertTransaction appends a simulated transaction with a streaming insert.
// The transaction ID is used as the insert ID so retries do not duplicate it.
func (r *Repository) InsertTransaction(ctx context.Context, tx *domain.SimulatedTransaction) error {
	row, err := transactionToRow(tx)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(store.CollectionTransactions).Inserter()
	saver := &bigquery.StructSaver{Struct: row, InsertID: row.TransactionID}
	if err := inserter.Put(ctx, saver); err != nil {
		return fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}

	return nil
}

// ListTransactions returns the user's simulated transactions oldest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]*domain.SimulatedTransaction, error) {
	query := fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			action,
			amount,
			currency,
			category,
			entities,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts, transaction_id
	`, r.table(store.CollectionTransactions))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading query: %w", err)
	}

	var transactions []*domain.SimulatedTransaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
		}
		tx, err := transactionFromRow(&row)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}
