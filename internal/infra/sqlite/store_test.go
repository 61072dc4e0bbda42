package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProfiles_MergeWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	name, currency := "Ada", "EUR"
	banks := []domain.Bank{{Name: "Bank A", ID: 1}}
	_, err = s.SaveProfile(ctx, "u1", domain.ProfileUpdate{Name: &name, Currency: &currency, Banks: &banks})
	require.NoError(t, err)

	place := "Berlin"
	_, err = s.SaveProfile(ctx, "u1", domain.ProfileUpdate{Place: &place})
	require.NoError(t, err)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, "Berlin", p.Place)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, banks, p.Banks)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestTransactions_InsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("19.99")

	for i, id := range []string{"b", "a"} {
		err := s.InsertTransaction(ctx, &domain.SimulatedTransaction{
			ID:        id,
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Entities: domain.EntitySet{
				Action: domain.StringPtr("EXPENSE"),
				Amount: &amount,
			},
		})
		require.NoError(t, err)
	}

	err := s.InsertTransaction(ctx, &domain.SimulatedTransaction{ID: "a", UserID: "u1"})
	assert.Error(t, err, "duplicate ids are rejected")

	txs, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "b", txs[0].ID)
	assert.Equal(t, "a", txs[1].ID)
	assert.True(t, txs[0].CreatedAt.Equal(base))
	require.NotNil(t, txs[0].Entities.Amount)
	assert.True(t, amount.Equal(*txs[0].Entities.Amount))

	other, err := s.ListTransactions(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLegacy_ImportAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ImportExpenses(ctx, []*domain.Expense{
		{ID: "e1", UserID: "u1", Amount: decimal.RequireFromString("12.50"), Category: "Dining", Date: "2026-02-01"},
		{ID: "e2", UserID: "u2", Amount: decimal.RequireFromString("3")},
	}))
	require.NoError(t, s.ImportInvestments(ctx, []*domain.Investment{
		{ID: "i1", UserID: "u1", Symbol: "VTI", Shares: decimal.NewFromInt(2), PurchasePrice: decimal.RequireFromString("200.10")},
	}))

	expenses, err := s.ListExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Dining", expenses[0].Category)
	assert.True(t, decimal.RequireFromString("12.5").Equal(expenses[0].Amount))

	investments, err := s.ListInvestments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "400.2", investments[0].CostBasis().String())
}

func TestWatchTransactions_Polls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var (
		mu        sync.Mutex
		snapshots [][]*domain.SimulatedTransaction
	)
	unsubscribe, err := s.WatchTransactions(ctx, "u1", func(txs []*domain.SimulatedTransaction) {
		mu.Lock()
		snapshots = append(snapshots, txs)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	mu.Lock()
	require.Len(t, snapshots, 1, "initial snapshot is delivered synchronously")
	assert.Empty(t, snapshots[0])
	mu.Unlock()

	require.NoError(t, s.InsertTransaction(ctx, &domain.SimulatedTransaction{ID: "t1", UserID: "u1"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) == 2 && len(snapshots[1]) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
