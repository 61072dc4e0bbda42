// Package sqlite is the single-file document store backend for local use.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	place      TEXT NOT NULL DEFAULT '',
	currency   TEXT NOT NULL DEFAULT '',
	purpose    TEXT NOT NULL DEFAULT '',
	banks      TEXT NOT NULL DEFAULT '[]',
	categories TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions_simulated (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	entities   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions_simulated (user_id, created_at);

CREATE TABLE IF NOT EXISTS expenses (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	amount      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_expenses_user ON expenses (user_id);

CREATE TABLE IF NOT EXISTS investments (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	shares         TEXT NOT NULL,
	purchase_price TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_investments_user ON investments (user_id);
`

// Store implements store.Repository on a SQLite database file.
type Store struct {
	db           *sql.DB
	pollInterval time.Duration
	log          zerolog.Logger
}

var (
	_ store.Repository     = (*Store)(nil)
	_ store.LegacyImporter = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, pollInterval time.Duration, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("Open: opening %s: %w", path, err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the server and watches.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: applying schema: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite store ready")
	return &Store{db: db, pollInterval: pollInterval, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProfile implements store.ProfileRepository.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return getProfile(ctx, s.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, q querier, userID string) (*domain.UserProfile, error) {
	var (
		p                 domain.UserProfile
		banks, categories string
		updated           int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT user_id, name, place, currency, purpose, banks, categories, updated_at
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Name, &p.Place, &p.Currency, &p.Purpose, &banks, &categories, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetProfile: %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}

	if err := json.Unmarshal([]byte(banks), &p.Banks); err != nil {
		return nil, fmt.Errorf("GetProfile: decoding banks: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return nil, fmt.Errorf("GetProfile: decoding categories: %w", err)
	}
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

// SaveProfile implements store.ProfileRepository. The read and the write
// share one transaction.
func (s *Store) SaveProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SaveProfile: begin: %w", err)
	}
	defer tx.Rollback()

	base, err := getProfile(ctx, tx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("SaveProfile: %w", err)
	}
	merged := update.Apply(userID, base, time.Now().UTC())

	banks, err := json.Marshal(nonNil(merged.Banks))
	if err != nil {
		return nil, fmt.Errorf("SaveProfile: encoding banks: %w", err)
	}
	categories, err := json.Marshal(nonNil(merged.Categories))
	if err != nil {
		return nil, fmt.Errorf("SaveProfile: encoding categories: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, name, place, currency, purpose, banks, categories, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			place = excluded.place,
			currency = excluded.currency,
			purpose = excluded.purpose,
			banks = excluded.banks,
			categories = excluded.categories,
			updated_at = excluded.updated_at`,
		userID, merged.Name, merged.Place, merged.Currency, merged.Purpose,
		string(banks), string(categories), merged.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("SaveProfile: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SaveProfile: commit: %w", err)
	}
	return merged, nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, t *domain.SimulatedTransaction) error {
	entities, err := json.Marshal(t.Entities)
	if err != nil {
		return fmt.Errorf("InsertTransaction: encoding entities: %w", err)
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions_simulated (id, user_id, created_at, entities) VALUES (?, ?, ?, ?)`,
		t.ID, t.UserID, createdAt.UnixNano(), string(entities),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*domain.SimulatedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, created_at, entities
		FROM transactions_simulated
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.SimulatedTransaction
	for rows.Next() {
		var (
			t        domain.SimulatedTransaction
			created  int64
			entities string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &created, &entities); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(entities), &t.Entities); err != nil {
			return nil, fmt.Errorf("ListTransactions: decoding entities of %s: %w", t.ID, err)
		}
		t.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return out, nil
}

// ListExpenses implements store.LegacyRepository.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]*domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, category, description, date
		FROM expenses WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Expense
	for rows.Next() {
		var (
			e      domain.Expense
			amount string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &amount, &e.Category, &e.Description, &e.Date); err != nil {
			return nil, fmt.Errorf("ListExpenses: scan: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ListExpenses: amount of %s: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}
	return out, nil
}

// ListInvestments implements store.LegacyRepository.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, shares, purchase_price
		FROM investments WHERE user_id = ? ORDER BY symbol, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Investment
	for rows.Next() {
		var (
			i             domain.Investment
			shares, price string
		)
		if err := rows.Scan(&i.ID, &i.UserID, &i.Symbol, &shares, &price); err != nil {
			return nil, fmt.Errorf("ListInvestments: scan: %w", err)
		}
		if i.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("ListInvestments: shares of %s: %w", i.ID, err)
		}
		if i.PurchasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("ListInvestments: price of %s: %w", i.ID, err)
		}
		out = append(out, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}
	return out, nil
}

// ImportExpenses implements store.LegacyImporter. Existing IDs are replaced.
func (s *Store) ImportExpenses(ctx context.Context, expenses []*domain.Expense) error {
	return s.inTx(ctx, "ImportExpenses", func(tx *sql.Tx) error {
		for _, e := range expenses {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO expenses (id, user_id, amount, category, description, date)
				VALUES (?, ?, ?, ?, ?, ?)`,
				e.ID, e.UserID, e.Amount.String(), e.Category, e.Description, e.Date)
			if err != nil {
				return fmt.Errorf("expense %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// ImportInvestments implements store.LegacyImporter. Existing IDs are replaced.
func (s *Store) ImportInvestments(ctx context.Context, investments []*domain.Investment) error {
	return s.inTx(ctx, "ImportInvestments", func(tx *sql.Tx) error {
		for _, i := range investments {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO investments (id, user_id, symbol, shares, purchase_price)
				VALUES (?, ?, ?, ?, ?)`,
				i.ID, i.UserID, i.Symbol, i.Shares.String(), i.PurchasePrice.String())
			if err != nil {
				return fmt.Errorf("investment %s: %w", i.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// WatchTransactions implements store.Watcher by polling.
func (s *Store) WatchTransactions(ctx context.Context, userID string, fn func([]*domain.SimulatedTransaction)) (store.Unsubscribe, error) {
	return store.Poll(ctx, s.pollInterval, s.log, func(ctx context.Context) ([]*domain.SimulatedTransaction, error) {
		return s.ListTransactions(ctx, userID)
	}, fn)
}

// WatchExpenses implements store.Watcher by polling.
func (s *Store) WatchExpenses(ctx context.Context, userID string, fn func([]*domain.Expense)) (store.Unsubscribe, error) {
	return store.Poll(ctx, s.pollInterval, s.log, func(ctx context.Context) ([]*domain.Expense, error) {
		return s.ListExpenses(ctx, userID)
	}, fn)
}

// WatchInvestments implements store.Watcher by polling.
func (s *Store) WatchInvestments(ctx context.Context, userID string, fn func([]*domain.Investment)) (store.Unsubscribe, error) {
	return store.Poll(ctx, s.pollInterval, s.log, func(ctx context.Context) ([]*domain.Investment, error) {
		return s.ListInvestments(ctx, userID)
	}, fn)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
