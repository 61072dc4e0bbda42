// Package dashboard keeps a live view of a user's records for the overview
// screen and the advice summary.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// Dashboard holds the latest snapshot of every watched collection.
type Dashboard struct {
	userID string
	subs   store.Subscriptions

	mu           sync.RWMutex
	expenses     []*domain.Expense
	investments  []*domain.Investment
	transactions []*domain.SimulatedTransaction
	onChange     func(advice.Records)
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithOnChange registers a callback run after every update with the new
// records. It must not call Close.
func WithOnChange(fn func(advice.Records)) Option {
	return func(d *Dashboard) { d.onChange = fn }
}

// Open subscribes to the user's expenses, investments and transactions. If
// any subscription fails, those already acquired are released.
func Open(ctx context.Context, w store.Watcher, userID string, opts ...Option) (*Dashboard, error) {
	d := &Dashboard{userID: userID}
	for _, opt := range opts {
		opt(d)
	}

	unsub, err := w.WatchExpenses(ctx, userID, func(es []*domain.Expense) {
		d.update(func() { d.expenses = es })
	})
	if err != nil {
		return nil, fmt.Errorf("Open: watch expenses: %w", err)
	}
	d.subs.Add(unsub)

	unsub, err = w.WatchInvestments(ctx, userID, func(is []*domain.Investment) {
		d.update(func() { d.investments = is })
	})
	if err != nil {
		d.subs.Close()
		return nil, fmt.Errorf("Open: watch investments: %w", err)
	}
	d.subs.Add(unsub)

	unsub, err = w.WatchTransactions(ctx, userID, func(txs []*domain.SimulatedTransaction) {
		d.update(func() { d.transactions = txs })
	})
	if err != nil {
		d.subs.Close()
		return nil, fmt.Errorf("Open: watch transactions: %w", err)
	}
	d.subs.Add(unsub)

	return d, nil
}

func (d *Dashboard) update(set func()) {
	d.mu.Lock()
	set()
	fn := d.onChange
	d.mu.Unlock()

	if fn != nil {
		fn(d.Snapshot())
	}
}

// Snapshot returns the current records. The profile is left nil.
func (d *Dashboard) Snapshot() advice.Records {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return advice.Records{
		Expenses:     append([]*domain.Expense(nil), d.expenses...),
		Investments:  append([]*domain.Investment(nil), d.investments...),
		Transactions: append([]*domain.SimulatedTransaction(nil), d.transactions...),
	}
}

// Close releases every subscription. Safe to call more than once.
func (d *Dashboard) Close() {
	d.subs.Close()
}
