package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// numericScale is the fractional precision of BigQuery NUMERIC.
const numericScale = 9

type ProfileRow struct {
	UserID     string            `bigquery:"user_id"`    // REQUIRED
	Name       string            `bigquery:"name"`       // NULLABLE
	Place      string            `bigquery:"place"`      // NULLABLE
	Currency   string            `bigquery:"currency"`   // NULLABLE
	Purpose    string            `bigquery:"purpose"`    // NULLABLE
	Banks      bigquery.NullJSON `bigquery:"banks"`      // NULLABLE JSON
	Categories []string          `bigquery:"categories"` // REPEATED STRING
	UpdatedTS  time.Time         `bigquery:"updated_ts"` // REQUIRED
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	Action   bigquery.NullString `bigquery:"action"`   // NULLABLE
	Amount   *big.Rat            `bigquery:"amount"`   // NULLABLE NUMERIC
	Currency bigquery.NullString `bigquery:"currency"` // NULLABLE
	Category bigquery.NullString `bigquery:"category"` // NULLABLE

	Entities bigquery.NullJSON `bigquery:"entities"` // REQUIRED JSON

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type ExpenseRow struct {
	ExpenseID   string              `bigquery:"expense_id"`   // REQUIRED
	UserID      string              `bigquery:"user_id"`      // REQUIRED
	Amount      *big.Rat            `bigquery:"amount"`       // REQUIRED NUMERIC
	Category    bigquery.NullString `bigquery:"category"`     // NULLABLE
	Description bigquery.NullString `bigquery:"description"`  // NULLABLE
	ExpenseDate bigquery.NullDate   `bigquery:"expense_date"` // NULLABLE
}

type InvestmentRow struct {
	InvestmentID  string   `bigquery:"investment_id"`  // REQUIRED
	UserID        string   `bigquery:"user_id"`        // REQUIRED
	Symbol        string   `bigquery:"symbol"`         // REQUIRED
	Shares        *big.Rat `bigquery:"shares"`         // REQUIRED NUMERIC
	PurchasePrice *big.Rat `bigquery:"purchase_price"` // REQUIRED NUMERIC
}

func profileFromRow(row *ProfileRow) (*domain.UserProfile, error) {
	p := &domain.UserProfile{
		UserID:     row.UserID,
		Name:       row.Name,
		Place:      row.Place,
		Currency:   row.Currency,
		Purpose:    row.Purpose,
		Categories: row.Categories,
		UpdatedAt:  row.UpdatedTS,
	}
	if row.Banks.Valid && row.Banks.JSONVal != "" {
		if err := json.Unmarshal([]byte(row.Banks.JSONVal), &p.Banks); err != nil {
			return nil, fmt.Errorf("profileFromRow: decoding banks: %w", err)
		}
	}
	return p, nil
}

func transactionToRow(tx *domain.SimulatedTransaction) (*TransactionRow, error) {
	entities, err := json.Marshal(tx.Entities)
	if err != nil {
		return nil, fmt.Errorf("transactionToRow: encoding entities: %w", err)
	}
	row := &TransactionRow{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Action:        nullString(tx.Entities.Action),
		Currency:      nullString(tx.Entities.Currency),
		Category:      nullString(tx.Entities.Category),
		Entities:      bigquery.NullJSON{JSONVal: string(entities), Valid: true},
		CreatedTS:     tx.CreatedAt,
	}
	if tx.Entities.Amount != nil {
		row.Amount = tx.Entities.Amount.Rat()
	}
	return row, nil
}

func transactionFromRow(row *TransactionRow) (*domain.SimulatedTransaction, error) {
	tx := &domain.SimulatedTransaction{
		ID:        row.TransactionID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedTS,
	}
	if row.Entities.Valid {
		if err := json.Unmarshal([]byte(row.Entities.JSONVal), &tx.Entities); err != nil {
			return nil, fmt.Errorf("transactionFromRow: decoding entities: %w", err)
		}
	}
	return tx, nil
}

func expenseFromRow(row *ExpenseRow) (*domain.Expense, error) {
	amount, err := ratToDecimal(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("expenseFromRow: %w", err)
	}
	e := &domain.Expense{
		ID:          row.ExpenseID,
		UserID:      row.UserID,
		Amount:      amount,
		Category:    row.Category.StringVal,
		Description: row.Description.StringVal,
	}
	if row.ExpenseDate.Valid {
		e.Date = row.ExpenseDate.Date.String()
	}
	return e, nil
}

func expenseToRow(e *domain.Expense) (*ExpenseRow, error) {
	row := &ExpenseRow{
		ExpenseID:   e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount.Rat(),
		Category:    bigquery.NullString{StringVal: e.Category, Valid: e.Category != ""},
		Description: bigquery.NullString{StringVal: e.Description, Valid: e.Description != ""},
	}
	if e.Date != "" {
		d, err := civil.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("expenseToRow: parsing date: %w", err)
		}
		row.ExpenseDate = bigquery.NullDate{Date: d, Valid: true}
	}
	return row, nil
}

func investmentFromRow(row *InvestmentRow) (*domain.Investment, error) {
	shares, err := ratToDecimal(row.Shares)
	if err != nil {
		return nil, fmt.Errorf("investmentFromRow: shares: %w", err)
	}
	price, err := ratToDecimal(row.PurchasePrice)
	if err != nil {
		return nil, fmt.Errorf("investmentFromRow: purchase price: %w", err)
	}
	return &domain.Investment{
		ID:            row.InvestmentID,
		UserID:        row.UserID,
		Symbol:        row.Symbol,
		Shares:        shares,
		PurchasePrice: price,
	}, nil
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(numericScale))
}

func nullString(p *string) bigquery.NullString {
	if p == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *p, Valid: true}
}

func investmentToRow(i *domain.Investment) *InvestmentRow {
	return &InvestmentRow{
		InvestmentID:  i.ID,
		UserID:        i.UserID,
		Symbol:        i.Symbol,
		Shares:        i.Shares.Rat(),
		PurchasePrice: i.PurchasePrice.Rat(),
	}
}
