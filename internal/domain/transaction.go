package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulatedTransaction is one committed chat transaction. It is written once
// and never updated or deleted.
type SimulatedTransaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Entities  EntitySet `json:"entities"`
}

// Clone returns a deep copy of the transaction.
func (t *SimulatedTransaction) Clone() *SimulatedTransaction {
	out := *t
	out.Entities = t.Entities.Clone()
	return &out
}

// Expense is a record from the legacy expenses collection. Read only.
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`
}

// Investment is a record from the legacy investments collection. Read only.
type Investment struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
}

// CostBasis is shares times purchase price.
func (i Investment) CostBasis() decimal.Decimal {
	return i.Shares.Mul(i.PurchasePrice)
}
