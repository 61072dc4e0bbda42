// Package nlu builds the instruction sent to the language model and parses
// its structured reply.
package nlu

import (
	"strings"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// Defaults used when the profile is missing or incomplete.
var (
	FallbackCategories = []string{"Groceries", "Rent", "Utilities", "Transport", "Entertainment", "Salary", "Other"}
	FallbackAccounts   = []string{"Checking", "Credit Card"}
	InvestmentSymbols  = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "SPY"}
)

const (
	// LatestInputLabel introduces the per-message tail of an instruction.
	LatestInputLabel = "Latest User Input: "
	// DefaultCurrency applies when the profile has none.
	DefaultCurrency = "USD"
	// BrokerageAccount is always offered next to the user's banks.
	BrokerageAccount = "Brokerage"
)

// Contract is the user context embedded in every instruction.
type Contract struct {
	Categories []string
	Accounts   []string
	Currency   string
	Symbols    []string
}

// ContractFor derives the contract from a profile. A nil profile yields the
// fallback contract.
func ContractFor(p *domain.UserProfile) Contract {
	c := Contract{
		Categories: append([]string{}, FallbackCategories...),
		Accounts:   append(append([]string{}, FallbackAccounts...), BrokerageAccount),
		Currency:   DefaultCurrency,
		Symbols:    append([]string{}, InvestmentSymbols...),
	}
	if p == nil {
		return c
	}
	if len(p.Categories) > 0 {
		c.Categories = append([]string{}, p.Categories...)
	}
	if banks := p.BankNames(); len(banks) > 0 {
		c.Accounts = append(banks, BrokerageAccount)
	}
	if strings.TrimSpace(p.Currency) != "" {
		c.Currency = p.Currency
	}
	return c
}

// CategoriesText is the comma separated category list.
func (c Contract) CategoriesText() string { return strings.Join(c.Categories, ", ") }

// AccountsText is the comma separated account list.
func (c Contract) AccountsText() string { return strings.Join(c.Accounts, ", ") }

// BuildInstruction renders the system instruction for one user message:
// ContractInstruction followed by the latest input. The output depends only
// on its arguments.
func BuildInstruction(c Contract, userMessage string) string {
	return ContractInstruction(c) + LatestInputLabel + "\"" + userMessage + "\""
}

// ContractInstruction is the part of the instruction that depends only on
// the contract. It stays the same across messages while the profile does.
func ContractInstruction(c Contract) string {
	var b strings.Builder

	b.WriteString("You are an expert financial NLU service. Using the conversation so far and the latest user message, ")
	b.WriteString("decide the user's INTENT and extract every relevant ENTITY.\n\n")
	b.WriteString("Reply with exactly one JSON object and nothing else.\n\n")

	b.WriteString("USER CONTEXT:\n")
	b.WriteString("- Allowed ledger CATEGORIES: " + c.CategoriesText() + "\n")
	b.WriteString("- Allowed ACCOUNTS: " + c.AccountsText() + "\n")
	b.WriteString("- Default CURRENCY: " + c.Currency + "\n")
	b.WriteString("- Investment SYMBOLS: " + strings.Join(c.Symbols, ", ") + "\n\n")

	b.WriteString("JSON SCHEMA:\n")
	b.WriteString("{\n")
	b.WriteString("  \"intent\": " + quotedAlternatives(intentNames()) + ",\n")
	b.WriteString("  \"entities\": {\n")
	b.WriteString("    \"ACTION\": " + quotedAlternatives(actionNames()) + ",\n")
	b.WriteString("    \"AMOUNT\": number,\n")
	b.WriteString("    \"CURRENCY\": string,\n")
	b.WriteString("    \"DATE\": \"YYYY-MM-DD\",\n")
	b.WriteString("    \"DESCRIPTION\": string,\n")
	b.WriteString("    \"SOURCE_ACCOUNT\": string,\n")
	b.WriteString("    \"DESTINATION_ACCOUNT\": string,\n")
	b.WriteString("    \"CATEGORY\": string,\n")
	b.WriteString("    \"SYMBOL\": string,\n")
	b.WriteString("    \"SHARES\": number,\n")
	b.WriteString("    \"MISSING_FIELDS\": [string]\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	b.WriteString("FIELD RULES:\n")
	b.WriteString("- ACTION and AMOUNT are required for every LOG_TRANSACTION.\n")
	for _, a := range domain.Actions {
		b.WriteString("- " + string(a) + " also requires " + joinFields(actionRequirements[a]) + ".\n")
	}
	b.WriteString("- For BUY_STOCK and SELL_STOCK, AMOUNT is the price per share.\n")
	b.WriteString("- Use the default currency when none is mentioned and today's date when no date is given.\n")
	b.WriteString("- MISSING_FIELDS lists every required field you could not extract. It MUST be [] when nothing is missing.\n")
	b.WriteString("- Prefer LOG_TRANSACTION when the message describes money moving.\n")
	b.WriteString("- Return raw JSON. Do not use Markdown or code fences.\n\n")
	return b.String()
}

// StableInstruction drops the per-message tail from an instruction built by
// BuildInstruction. Other instructions are returned unchanged.
func StableInstruction(instruction string) string {
	if i := strings.Index(instruction, "\n\n"+LatestInputLabel+"\""); i >= 0 {
		return instruction[:i+2]
	}
	return instruction
}

func intentNames() []string {
	out := make([]string, len(domain.Intents))
	for i, in := range domain.Intents {
		out[i] = string(in)
	}
	return out
}

func actionNames() []string {
	out := make([]string, len(domain.Actions))
	for i, a := range domain.Actions {
		out[i] = string(a)
	}
	return out
}

func quotedAlternatives(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "\"" + n + "\""
	}
	return strings.Join(quoted, " | ")
}

func joinFields(fields []domain.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, " and ")
}
