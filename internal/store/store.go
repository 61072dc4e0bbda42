// Package store defines the document database boundary: user profiles, the
// simulated transaction log and the read-only legacy collections.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// Collection names shared by every backend.
const (
	CollectionProfiles     = "user_profiles"
	CollectionTransactions = "transactions_simulated"
	CollectionExpenses     = "expenses"
	CollectionInvestments  = "investments"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRepository reads and merge-writes user profiles.
type ProfileRepository interface {
	// GetProfile returns ErrNotFound when the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	// SaveProfile merges update into the stored profile, creating it if
	// absent. Fields not set in update are preserved.
	SaveProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error)
}

// TransactionRepository appends to and reads the simulated transaction log.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, tx *domain.SimulatedTransaction) error
	// ListTransactions returns the user's transactions oldest first.
	ListTransactions(ctx context.Context, userID string) ([]*domain.SimulatedTransaction, error)
}

// LegacyRepository reads the legacy expenses and investments collections.
type LegacyRepository interface {
	ListExpenses(ctx context.Context, userID string) ([]*domain.Expense, error)
	ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error)
}

// LegacyImporter loads records into the legacy collections.
type LegacyImporter interface {
	ImportExpenses(ctx context.Context, expenses []*domain.Expense) error
	ImportInvestments(ctx context.Context, investments []*domain.Investment) error
}

// Watcher delivers the current contents of a collection on subscribe and
// again whenever it changes, until the returned Unsubscribe is called.
type Watcher interface {
	WatchTransactions(ctx context.Context, userID string, fn func([]*domain.SimulatedTransaction)) (Unsubscribe, error)
	WatchExpenses(ctx context.Context, userID string, fn func([]*domain.Expense)) (Unsubscribe, error)
	WatchInvestments(ctx context.Context, userID string, fn func([]*domain.Investment)) (Unsubscribe, error)
}

// Unsubscribe stops a watch. It is safe to call more than once.
type Unsubscribe func()

// Repository is everything a backend provides.
type Repository interface {
	ProfileRepository
	TransactionRepository
	LegacyRepository
	Watcher
	Close() error
}
