// Package archive exports a user's simulated transaction ledger to object
// storage as JSON.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// Ledger is the exported document.
type Ledger struct {
	UserID       string                         `json:"userId"`
	ExportedAt   time.Time                      `json:"exportedAt"`
	Currency     string                         `json:"currency,omitempty"`
	Count        int                            `json:"count"`
	Transactions []*domain.SimulatedTransaction `json:"transactions"`
}

// Source is what an export reads.
type Source interface {
	store.ProfileRepository
	store.TransactionRepository
}

// Exporter writes ledgers to one bucket.
type Exporter struct {
	objects ObjectStore
	bucket  string
	src     Source
	log     zerolog.Logger
	now     func() time.Time
}

// NewExporter creates an exporter writing to bucket.
func NewExporter(objects ObjectStore, bucket string, src Source, log zerolog.Logger) (*Exporter, error) {
	if bucket == "" {
		return nil, errors.New("NewExporter: bucket is required (set GCS_BUCKET)")
	}
	return &Exporter{
		objects: objects,
		bucket:  bucket,
		src:     src,
		log:     log,
		now:     time.Now,
	}, nil
}

// ExportLedger writes the user's transactions and returns the object URI.
func (e *Exporter) ExportLedger(ctx context.Context, userID string) (string, *Ledger, error) {
	txs, err := e.src.ListTransactions(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("ExportLedger: %w", &domain.PersistenceError{Op: "list transactions", Err: err})
	}

	ledger := &Ledger{
		UserID:       userID,
		ExportedAt:   e.now().UTC(),
		Count:        len(txs),
		Transactions: txs,
	}
	if ledger.Transactions == nil {
		ledger.Transactions = []*domain.SimulatedTransaction{}
	}

	switch p, err := e.src.GetProfile(ctx, userID); {
	case err == nil:
		ledger.Currency = p.Currency
	case !errors.Is(err, store.ErrNotFound):
		return "", nil, fmt.Errorf("ExportLedger: %w", &domain.PersistenceError{Op: "read profile", Err: err})
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("ExportLedger: encoding: %w", err)
	}

	object := ObjectName(userID, ledger.ExportedAt)
	if err := e.objects.Write(ctx, e.bucket, object, "application/json", data); err != nil {
		return "", nil, fmt.Errorf("ExportLedger: %w", err)
	}

	uri := URI(e.bucket, object)
	e.log.Info().
		Str("user_id", userID).
		Str("uri", uri).
		Int("transactions", ledger.Count).
		Msg("Ledger exported")
	return uri, ledger, nil
}

// ReadLedger loads a previously exported ledger.
func ReadLedger(ctx context.Context, objects ObjectStore, uri string) (*Ledger, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("ReadLedger: %w", err)
	}

	data, err := objects.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("ReadLedger: %w", err)
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("ReadLedger: decoding %s: %w", uri, err)
	}
	return &ledger, nil
}
