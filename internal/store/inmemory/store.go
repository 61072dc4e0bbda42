// Package inmemory is a process-local implementation of store.Repository.
// Watches are pushed synchronously on every write.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// Store is an in-memory implementation of store.Repository.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	profiles     map[string]*domain.UserProfile
	transactions map[string][]*domain.SimulatedTransaction
	expenses     map[string][]*domain.Expense
	investments  map[string][]*domain.Investment

	nextWatch int
	txWatch   map[int]watch[*domain.SimulatedTransaction]
	expWatch  map[int]watch[*domain.Expense]
	invWatch  map[int]watch[*domain.Investment]
	now       func() time.Time
}

type watch[T any] struct {
	userID string
	fn     func([]T)
}

var (
	_ store.Repository     = (*Store)(nil)
	_ store.LegacyImporter = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles:     make(map[string]*domain.UserProfile),
		transactions: make(map[string][]*domain.SimulatedTransaction),
		expenses:     make(map[string][]*domain.Expense),
		investments:  make(map[string][]*domain.Investment),
		txWatch:      make(map[int]watch[*domain.SimulatedTransaction]),
		expWatch:     make(map[int]watch[*domain.Expense]),
		invWatch:     make(map[int]watch[*domain.Investment]),
		now:          time.Now,
	}
}

// GetProfile implements store.ProfileRepository.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	return p.Clone(), nil
}

// SaveProfile implements store.ProfileRepository.
func (s *Store) SaveProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("SaveProfile: user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := update.Apply(userID, s.profiles[userID], s.now().UTC())
	s.profiles[userID] = merged
	return merged.Clone(), nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.SimulatedTransaction) error {
	if tx.ID == "" || tx.UserID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID and user ID are required")
	}

	s.mu.Lock()
	for _, existing := range s.transactions[tx.UserID] {
		if existing.ID == tx.ID {
			s.mu.Unlock()
			return fmt.Errorf("InsertTransaction: duplicate transaction ID %s", tx.ID)
		}
	}
	s.transactions[tx.UserID] = append(s.transactions[tx.UserID], tx.Clone())
	snapshot, fns := s.transactionsLocked(tx.UserID), watchersFor(s.txWatch, tx.UserID)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*domain.SimulatedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionsLocked(userID), nil
}

func (s *Store) transactionsLocked(userID string) []*domain.SimulatedTransaction {
	src := s.transactions[userID]
	out := make([]*domain.SimulatedTransaction, 0, len(src))
	for _, tx := range src {
		out = append(out, tx.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AddExpense seeds the legacy expenses collection.
func (s *Store) AddExpense(e domain.Expense) {
	s.mu.Lock()
	s.expenses[e.UserID] = append(s.expenses[e.UserID], &e)
	snapshot, fns := s.expensesLocked(e.UserID), watchersFor(s.expWatch, e.UserID)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// AddInvestment seeds the legacy investments collection.
func (s *Store) AddInvestment(i domain.Investment) {
	s.mu.Lock()
	s.investments[i.UserID] = append(s.investments[i.UserID], &i)
	snapshot, fns := s.investmentsLocked(i.UserID), watchersFor(s.invWatch, i.UserID)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// ImportExpenses implements store.LegacyImporter.
func (s *Store) ImportExpenses(ctx context.Context, expenses []*domain.Expense) error {
	for _, e := range expenses {
		s.AddExpense(*e)
	}
	return nil
}

// ImportInvestments implements store.LegacyImporter.
func (s *Store) ImportInvestments(ctx context.Context, investments []*domain.Investment) error {
	for _, i := range investments {
		s.AddInvestment(*i)
	}
	return nil
}

// ListExpenses implements store.LegacyRepository.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expensesLocked(userID), nil
}

// ListInvestments implements store.LegacyRepository.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.investmentsLocked(userID), nil
}

func (s *Store) expensesLocked(userID string) []*domain.Expense {
	out := make([]*domain.Expense, 0, len(s.expenses[userID]))
	for _, e := range s.expenses[userID] {
		c := *e
		out = append(out, &c)
	}
	return out
}

func (s *Store) investmentsLocked(userID string) []*domain.Investment {
	out := make([]*domain.Investment, 0, len(s.investments[userID]))
	for _, i := range s.investments[userID] {
		c := *i
		out = append(out, &c)
	}
	return out
}

// WatchTransactions implements store.Watcher.
func (s *Store) WatchTransactions(ctx context.Context, userID string, fn func([]*domain.SimulatedTransaction)) (store.Unsubscribe, error) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.txWatch[id] = watch[*domain.SimulatedTransaction]{userID: userID, fn: fn}
	snapshot := s.transactionsLocked(userID)
	s.mu.Unlock()

	fn(snapshot)
	return s.unsubscriber(func() { delete(s.txWatch, id) }), nil
}

// WatchExpenses implements store.Watcher.
func (s *Store) WatchExpenses(ctx context.Context, userID string, fn func([]*domain.Expense)) (store.Unsubscribe, error) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.expWatch[id] = watch[*domain.Expense]{userID: userID, fn: fn}
	snapshot := s.expensesLocked(userID)
	s.mu.Unlock()

	fn(snapshot)
	return s.unsubscriber(func() { delete(s.expWatch, id) }), nil
}

// WatchInvestments implements store.Watcher.
func (s *Store) WatchInvestments(ctx context.Context, userID string, fn func([]*domain.Investment)) (store.Unsubscribe, error) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.invWatch[id] = watch[*domain.Investment]{userID: userID, fn: fn}
	snapshot := s.investmentsLocked(userID)
	s.mu.Unlock()

	fn(snapshot)
	return s.unsubscriber(func() { delete(s.invWatch, id) }), nil
}

// WatchCount returns the number of live watches across all collections.
func (s *Store) WatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txWatch) + len(s.expWatch) + len(s.invWatch)
}

func (s *Store) unsubscriber(remove func()) store.Unsubscribe {
	return store.Once(func() {
		s.mu.Lock()
		remove()
		s.mu.Unlock()
	})
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

func watchersFor[T any](m map[int]watch[T], userID string) []func([]T) {
	var fns []func([]T)
	for _, w := range m {
		if w.userID == userID {
			fns = append(fns, w.fn)
		}
	}
	return fns
}
