package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/llm"
)

// Mode selects how the analysis is produced.
type Mode string

const (
	// ModeModel asks the language model.
	ModeModel Mode = "model"
	// ModeTemplate renders a fixed template from the aggregates after a delay.
	ModeTemplate Mode = "template"
)

// Analyst produces the financial analysis.
type Analyst struct {
	mode  Mode
	model llm.Model
	delay time.Duration
	log   zerolog.Logger
}

// NewAnalyst creates an analyst. model may be nil in template mode.
func NewAnalyst(mode Mode, model llm.Model, delay time.Duration, log zerolog.Logger) (*Analyst, error) {
	switch mode {
	case ModeTemplate:
	case ModeModel:
		if model == nil {
			return nil, fmt.Errorf("NewAnalyst: model mode requires a language model")
		}
	default:
		return nil, fmt.Errorf("NewAnalyst: unknown mode %q", mode)
	}
	return &Analyst{mode: mode, model: model, delay: delay, log: log}, nil
}

// Mode returns the configured mode.
func (a *Analyst) Mode() Mode { return a.mode }

// Analyze returns Markdown advice for the records.
func (a *Analyst) Analyze(ctx context.Context, r Records) (string, error) {
	if a.mode == ModeTemplate {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return RenderTemplate(Summarize(r)), nil
	}

	prompt, err := BuildPrompt(r)
	if err != nil {
		return "", err
	}
	text, err := a.model.Generate(ctx, prompt)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to generate financial analysis")
		return "", &domain.UpstreamError{Op: "generate advice", Err: err}
	}
	return strings.TrimSpace(text), nil
}

type promptExpense struct {
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

type promptInvestment struct {
	Symbol string `json:"symbol"`
	Shares string `json:"shares"`
	Price  string `json:"price"`
}

type promptProfile struct {
	Currency   string   `json:"currency"`
	Banks      []string `json:"banks"`
	Categories []string `json:"categories"`
}

type promptData struct {
	Expenses     []promptExpense                `json:"expenses"`
	Investments  []promptInvestment             `json:"investments"`
	Transactions []*domain.SimulatedTransaction `json:"simulated_transactions"`
	Profile      promptProfile                  `json:"profile"`
}

// BuildPrompt renders the analysis request sent in model mode.
func BuildPrompt(r Records) (string, error) {
	s := Summarize(r)

	data := promptData{
		Expenses:     []promptExpense{},
		Investments:  []promptInvestment{},
		Transactions: r.Transactions,
		Profile:      promptProfile{Currency: s.Currency},
	}
	if data.Transactions == nil {
		data.Transactions = []*domain.SimulatedTransaction{}
	}
	for _, e := range r.Expenses {
		data.Expenses = append(data.Expenses, promptExpense{Amount: e.Amount.String(), Category: e.Category, Description: e.Description})
	}
	for _, i := range r.Investments {
		data.Investments = append(data.Investments, promptInvestment{Symbol: i.Symbol, Shares: i.Shares.String(), Price: i.PurchasePrice.String()})
	}
	if r.Profile != nil {
		data.Profile.Banks = r.Profile.BankNames()
		data.Profile.Categories = r.Profile.Categories
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("BuildPrompt: marshal data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following user's financial data and profile (%s budget in %s) ", s.Purpose, s.Currency)
	b.WriteString("and write a concise summary of one or two paragraphs followed by three actionable pieces of advice.\n\n")
	b.WriteString("[Financial Data]\n")
	b.Write(raw)
	b.WriteString("\n\n[Instructions]\n")
	b.WriteString("1. Summarize the user's spending habits and name the major expense categories.\n")
	b.WriteString("2. Comment on the diversity and total value of the investments.\n")
	b.WriteString("3. Give three specific, numbered, actionable financial tips based on the data.\n")
	fmt.Fprintf(&b, "4. Mention the user's primary currency: %s.\n", s.Currency)
	b.WriteString("Format the answer as Markdown.")
	return b.String(), nil
}

// RenderTemplate renders the fixed analysis from the aggregates.
func RenderTemplate(s Summary) string {
	largest := "not yet clear"
	switch len(s.TopCategories) {
	case 0:
	case 1:
		largest = s.TopCategories[0].Category
	default:
		largest = s.TopCategories[0].Category + " and " + s.TopCategories[1].Category
	}

	var b strings.Builder
	b.WriteString("### Gemini Financial Analysis\n\n")
	b.WriteString("**Summary:**\n")
	fmt.Fprintf(&b, "This analysis is based on your **%s** budget tracking in **%s**. ", s.Purpose, s.Currency)
	fmt.Fprintf(&b, "You have **%d** expenses totaling **%s** from the old system ", s.ExpenseCount, s.Money(s.TotalExpenses))
	fmt.Fprintf(&b, "and **%d** transactions logged in the new NLU system. ", s.TransactionCount)
	fmt.Fprintf(&b, "Your investment portfolio has **%d** holdings with an initial value of **%s**. ", s.HoldingCount, s.Money(s.InvestmentValue))
	fmt.Fprintf(&b, "Your largest expense categories appear to be %s.\n\n", largest)

	b.WriteString("**Actionable Advice:**\n")
	fmt.Fprintf(&b, "1. **Budget Review:** Set a hard monthly limit for your highest non-essential category to free up **%s-%s** for savings.\n",
		s.Money(decimal.NewFromInt(100)), s.Money(decimal.NewFromInt(200)))
	b.WriteString("2. **Diversify Investments:** Put part of future investment capital into a broad index fund to reduce reliance on individual stocks.\n")
	b.WriteString("3. **Emergency Fund:** Keep **3-6 months** of expenses in a high-yield savings account before increasing investment contributions.\n")
	return b.String()
}
