package advice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/llm/llmtest"
	"github.com/dvloznov/finansmanager/internal/store/inmemory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func sampleRecords() Records {
	return Records{
		Profile: &domain.UserProfile{Currency: "USD", Purpose: "Family", Banks: []domain.Bank{{Name: "Chase", ID: 1}}},
		Expenses: []*domain.Expense{
			{ID: "e1", Amount: d("1200"), Category: "Rent"},
			{ID: "e2", Amount: d("80.25"), Category: "Groceries"},
		},
		Investments: []*domain.Investment{
			{ID: "i1", Symbol: "AAPL", Shares: d("10"), PurchasePrice: d("150")},
			{ID: "i2", Symbol: "SPY", Shares: d("2.5"), PurchasePrice: d("400")},
		},
		Transactions: []*domain.SimulatedTransaction{
			{ID: "t1", Entities: domain.EntitySet{Action: domain.StringPtr("EXPENSE"), Amount: dp("50"), Category: domain.StringPtr("Groceries")}},
			{ID: "t2", Entities: domain.EntitySet{Action: domain.StringPtr("income"), Amount: dp("3000")}},
			{ID: "t3", Entities: domain.EntitySet{Action: domain.StringPtr("EXPENSE")}},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRecords())

	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, "Family", s.Purpose)
	assert.Equal(t, 2, s.ExpenseCount)
	assert.True(t, s.TotalExpenses.Equal(d("1280.25")), s.TotalExpenses.String())
	assert.Equal(t, 2, s.HoldingCount)
	assert.True(t, s.InvestmentValue.Equal(d("2500")), s.InvestmentValue.String())
	assert.Equal(t, 3, s.TransactionCount)
	assert.True(t, s.LoggedSpending.Equal(d("50")))
	assert.True(t, s.LoggedIncome.Equal(d("3000")))

	require.Len(t, s.TopCategories, 2)
	assert.Equal(t, "Rent", s.TopCategories[0].Category)
	assert.Equal(t, "Groceries", s.TopCategories[1].Category)
	assert.True(t, s.TopCategories[1].Total.Equal(d("130.25")))
}

func TestSummarize_NoProfile(t *testing.T) {
	s := Summarize(Records{})
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, "Personal", s.Purpose)
	assert.True(t, s.InvestmentValue.IsZero())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,280.25", FormatMoney(d("1280.25"), "USD"))
	assert.Equal(t, "$0.01", FormatMoney(d("0.005"), "USD"))
	assert.True(t, ValidCurrency("eur"))
	assert.False(t, ValidCurrency("XYZ"))
}

func TestAnalyst_Template(t *testing.T) {
	a, err := NewAnalyst(ModeTemplate, nil, 0, zerolog.Nop())
	require.NoError(t, err)

	out, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "### Gemini Financial Analysis"))
	assert.Contains(t, out, "**Family** budget tracking in **USD**")
	assert.Contains(t, out, "**2** expenses totaling **$1,280.25**")
	assert.Contains(t, out, "**3** transactions logged")
	assert.Contains(t, out, "initial value of **$2,500.00**")
	assert.Contains(t, out, "Rent and Groceries")
}

func TestAnalyst_TemplateHonoursContext(t *testing.T) {
	a, err := NewAnalyst(ModeTemplate, nil, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Analyze(ctx, Records{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyst_Model(t *testing.T) {
	model := &llmtest.Model{GenerateFunc: func(prompt string) (string, error) {
		return "  ## Advice\n1. Save more  ", nil
	}}
	a, err := NewAnalyst(ModeModel, model, 0, zerolog.Nop())
	require.NoError(t, err)

	out, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "## Advice\n1. Save more", out)

	prompts := model.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "(Family budget in USD)")
	assert.Contains(t, prompts[0], `"symbol": "AAPL"`)
	assert.Contains(t, prompts[0], `"banks": [`)
	assert.Contains(t, prompts[0], "primary currency: USD")
}

func TestAnalyst_ModelFailure(t *testing.T) {
	model := &llmtest.Model{GenerateFunc: func(string) (string, error) { return "", errors.New("503") }}
	a, err := NewAnalyst(ModeModel, model, 0, zerolog.Nop())
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), Records{})
	var upstream *domain.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestNewAnalyst_Validation(t *testing.T) {
	_, err := NewAnalyst(ModeModel, nil, 0, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewAnalyst("oracle", nil, 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	repo := inmemory.NewStore()
	repo.AddExpense(domain.Expense{ID: "e1", UserID: "u1", Amount: d("10")})
	repo.AddInvestment(domain.Investment{ID: "i1", UserID: "u1", Symbol: "TSLA", Shares: d("1"), PurchasePrice: d("200")})

	r, err := Collect(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Nil(t, r.Profile, "a missing profile is tolerated")
	assert.Len(t, r.Expenses, 1)
	assert.Len(t, r.Investments, 1)
	assert.Empty(t, r.Transactions)
}
