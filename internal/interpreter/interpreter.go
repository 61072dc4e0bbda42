// Package interpreter turns a parsed NLU result into a chat entry, committing
// complete transactions to the simulated ledger.
package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/store"
)

const (
	queryAcknowledgement = "Data Query Intent: I recognize you want to query data. The system is ready to process your query on a future iteration."
	unknownIntentFormat  = "Unknown Intent: I couldn't process that request. The AI returned an unhandled intent: %s."
	systemErrorPrefix    = "System Error: "
)

// Context is the per-user information the interpreter needs.
type Context struct {
	UserID   string
	Contract nlu.Contract
}

// Interpreter maps NLU results to chat entries.
type Interpreter struct {
	txs   store.TransactionRepository
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// New creates an interpreter persisting to txs.
func New(txs store.TransactionRepository, log zerolog.Logger) *Interpreter {
	return &Interpreter{
		txs:   txs,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Interpret decides the outcome of one NLU result. The returned entry is
// always usable; the error is non-nil only when a commit failed to persist
// and wraps a *domain.PersistenceError.
func (i *Interpreter) Interpret(ctx context.Context, c Context, res *domain.NLUResult) (domain.ChatEntry, error) {
	if res == nil {
		return entry(domain.EntryError, systemErrorPrefix+"empty NLU result"), nil
	}

	switch res.Intent {
	case domain.IntentLogTransaction:
		missing := nlu.EffectiveMissing(res.Entities)
		if len(missing) > 0 {
			return entry(domain.EntryAI, FollowUp(c.Contract, missing)), nil
		}
		return i.commit(ctx, c, res.Entities)

	case domain.IntentQueryData:
		return entry(domain.EntryAI, queryAcknowledgement), nil

	default:
		intent := string(res.Intent)
		if intent == "" {
			intent = "none"
		}
		return entry(domain.EntryError, fmt.Sprintf(unknownIntentFormat, intent)), nil
	}
}

func (i *Interpreter) commit(ctx context.Context, c Context, entities domain.EntitySet) (domain.ChatEntry, error) {
	action := entities.ActionName()
	if action == "" || entities.Amount == nil {
		return entry(domain.EntryError, systemErrorPrefix+"the model reported no missing fields but omitted ACTION or AMOUNT."), nil
	}

	e := entities.Clone()
	e.Action = domain.StringPtr(string(action))
	if !e.Has(domain.FieldCurrency) {
		e.Currency = domain.StringPtr(c.Contract.Currency)
	}

	tx := &domain.SimulatedTransaction{
		ID:        i.newID(),
		UserID:    c.UserID,
		CreatedAt: i.now().UTC(),
		Entities:  e,
	}
	if err := i.txs.InsertTransaction(ctx, tx); err != nil {
		perr := &domain.PersistenceError{Op: "insert simulated transaction", Err: err}
		i.log.Error().Err(err).Str("user_id", c.UserID).Msg("Failed to log transaction")
		return entry(domain.EntryError, systemErrorPrefix+"could not save the transaction. Please try again."), perr
	}

	i.log.Info().
		Str("user_id", c.UserID).
		Str("transaction_id", tx.ID).
		Str("action", string(action)).
		Msg("Transaction logged")
	return entry(domain.EntrySuccess, Confirmation(e)), nil
}

// Confirmation renders the success message for a committed entity set.
func Confirmation(e domain.EntitySet) string {
	action := e.ActionName()
	msg := fmt.Sprintf("Logged %s of %s %s using the new double-entry schema.",
		action, e.Text(domain.FieldCurrency), e.Amount.StringFixed(2))

	var details string
	switch {
	case action == domain.ActionExpense || action == domain.ActionIncome:
		details = fmt.Sprintf("Category: %s, Account: %s", orNA(e.Text(domain.FieldCategory)), orNA(account(e)))
	case action.IsTrade():
		details = fmt.Sprintf("%s shares of %s @ %s", orNA(e.Text(domain.FieldShares)), orNA(e.Text(domain.FieldSymbol)), e.Amount.StringFixed(2))
	case action == domain.ActionTransfer:
		details = fmt.Sprintf("From: %s to %s", orNA(e.Text(domain.FieldSourceAccount)), orNA(e.Text(domain.FieldDestinationAccount)))
	}
	if details == "" {
		return msg
	}
	return msg + " " + details
}

// FollowUp renders the clarification question for the first missing field.
func FollowUp(c nlu.Contract, missing []string) string {
	var question string
	switch domain.Field(strings.ToUpper(strings.TrimSpace(missing[0]))) {
	case domain.FieldAmount:
		question = "I'm ready to log this, but how much was the transaction?"
	case domain.FieldSourceAccount, domain.FieldDestinationAccount:
		question = fmt.Sprintf("Which account should I use? (e.g., %s)", c.AccountsText())
	case domain.FieldCategory:
		question = fmt.Sprintf("Which ledger category does this fall under? (e.g., %s)", c.CategoriesText())
	case domain.FieldSymbol:
		question = "What is the stock ticker (e.g., MSFT)?"
	default:
		question = fmt.Sprintf("I'm missing: %s. Please provide the details to proceed.", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("Follow Up: %s (Missing: %s)", question, strings.Join(missing, ", "))
}

// account picks the account that matters for the action: income lands in the
// destination, everything else leaves the source.
func account(e domain.EntitySet) string {
	if e.ActionName() == domain.ActionIncome {
		if v := e.Text(domain.FieldDestinationAccount); v != "" {
			return v
		}
	}
	if v := e.Text(domain.FieldSourceAccount); v != "" {
		return v
	}
	return e.Text(domain.FieldDestinationAccount)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func entry(t domain.EntryType, msg string) domain.ChatEntry {
	return domain.ChatEntry{Type: t, Message: msg}
}
