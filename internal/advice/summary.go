// Package advice aggregates a user's records and produces the financial
// analysis shown on the dashboard.
package advice

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/store"
)

const defaultPurpose = "Personal"

// Records is everything the analysis looks at.
type Records struct {
	Profile      *domain.UserProfile
	Expenses     []*domain.Expense
	Investments  []*domain.Investment
	Transactions []*domain.SimulatedTransaction
}

// Source is the subset of a repository Collect reads from.
type Source interface {
	store.ProfileRepository
	store.TransactionRepository
	store.LegacyRepository
}

// Collect reads all records for a user. A missing profile is not an error.
func Collect(ctx context.Context, src Source, userID string) (Records, error) {
	var r Records

	p, err := src.GetProfile(ctx, userID)
	switch {
	case err == nil:
		r.Profile = p
	case !errors.Is(err, store.ErrNotFound):
		return r, &domain.PersistenceError{Op: "read profile", Err: err}
	}

	if r.Expenses, err = src.ListExpenses(ctx, userID); err != nil {
		return r, &domain.PersistenceError{Op: "list expenses", Err: err}
	}
	if r.Investments, err = src.ListInvestments(ctx, userID); err != nil {
		return r, &domain.PersistenceError{Op: "list investments", Err: err}
	}
	if r.Transactions, err = src.ListTransactions(ctx, userID); err != nil {
		return r, &domain.PersistenceError{Op: "list transactions", Err: err}
	}
	return r, nil
}

// CategoryTotal is the spend recorded against one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary holds the aggregates behind the analysis.
type Summary struct {
	Currency         string          `json:"currency"`
	Purpose          string          `json:"purpose"`
	ExpenseCount     int             `json:"expenseCount"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	HoldingCount     int             `json:"holdingCount"`
	InvestmentValue  decimal.Decimal `json:"investmentValue"`
	TransactionCount int             `json:"transactionCount"`
	LoggedSpending   decimal.Decimal `json:"loggedSpending"`
	LoggedIncome     decimal.Decimal `json:"loggedIncome"`
	TopCategories    []CategoryTotal `json:"topCategories"`
}

// Summarize computes the aggregates. Investment value is the cost basis,
// shares times purchase price; no market data is involved.
func Summarize(r Records) Summary {
	s := Summary{
		Currency:         nlu.DefaultCurrency,
		Purpose:          defaultPurpose,
		ExpenseCount:     len(r.Expenses),
		HoldingCount:     len(r.Investments),
		TransactionCount: len(r.Transactions),
	}
	if r.Profile != nil {
		if r.Profile.Currency != "" {
			s.Currency = r.Profile.Currency
		}
		if r.Profile.Purpose != "" {
			s.Purpose = r.Profile.Purpose
		}
	}

	byCategory := map[string]decimal.Decimal{}
	for _, e := range r.Expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
		if e.Category != "" {
			byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
		}
	}
	for _, i := range r.Investments {
		s.InvestmentValue = s.InvestmentValue.Add(i.CostBasis())
	}
	for _, tx := range r.Transactions {
		e := tx.Entities
		if e.Amount == nil {
			continue
		}
		switch e.ActionName() {
		case domain.ActionExpense:
			s.LoggedSpending = s.LoggedSpending.Add(*e.Amount)
			if c := strings.TrimSpace(e.Text(domain.FieldCategory)); c != "" {
				byCategory[c] = byCategory[c].Add(*e.Amount)
			}
		case domain.ActionIncome:
			s.LoggedIncome = s.LoggedIncome.Add(*e.Amount)
		}
	}

	for c, total := range byCategory {
		s.TopCategories = append(s.TopCategories, CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(s.TopCategories, func(i, j int) bool {
		if cmp := s.TopCategories[i].Total.Cmp(s.TopCategories[j].Total); cmp != 0 {
			return cmp > 0
		}
		return s.TopCategories[i].Category < s.TopCategories[j].Category
	})
	return s
}

// Money formats an amount in the summary's currency.
func (s Summary) Money(d decimal.Decimal) string {
	return FormatMoney(d, s.Currency)
}
