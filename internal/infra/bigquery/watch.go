package bigquery

import (
	"context"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// BigQuery has no change feed, so watches poll.

// WatchTransactions implements store.Watcher.
func (r *Repository) WatchTransactions(ctx context.Context, userID string, fn func([]*domain.SimulatedTransaction)) (store.Unsubscribe, error) {
	return store.Poll(ctx, r.pollInterval, r.log, func(ctx context.Context) ([]*domain.SimulatedTransaction, error) {
		return r.ListTransactions(ctx, userID)
	}, fn)
}

// WatchExpenses implements store.Watcher.
func (r *Repository) WatchExpenses(ctx context.Context, userID string, fn func([]*domain.Expense)) (store.Unsubscribe, error) {
	return store.Poll(ctx, r.pollInterval, r.log, func(ctx context.Context) ([]*domain.Expense, error) {
		return r.ListExpenses(ctx, userID)
	}, fn)
}

// WatchInvestments implements store.Watcher.
func (r *Repository) WatchInvestments(ctx context.Context, userID string, fn func([]*domain.Investment)) (store.Unsubscribe, error) {
	return store.Poll(ctx, r.pollInterval, r.log, func(ctx context.Context) ([]*domain.Investment, error) {
		return r.ListInvestments(ctx, userID)
	}, fn)
}
