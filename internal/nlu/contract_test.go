package nlu

import (
	"strings"
	"testing"

	"github.com/dvloznov/finansmanager/internal/domain"
)

func TestContractFor_Fallbacks(t *testing.T) {
	c := ContractFor(nil)

	if got := c.CategoriesText(); got != "Groceries, Rent, Utilities, Transport, Entertainment, Salary, Other" {
		t.Errorf("CategoriesText() = %q", got)
	}
	if got := c.AccountsText(); got != "Checking, Credit Card, Brokerage" {
		t.Errorf("AccountsText() = %q", got)
	}
	if c.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", c.Currency)
	}
}

func TestContractFor_Profile(t *testing.T) {
	p := &domain.UserProfile{
		Currency:   "EUR",
		Banks:      []domain.Bank{{Name: "Monzo", ID: 1}, {Name: "", ID: 2}, {Name: "Revolut", ID: 3}},
		Categories: []string{"Rent", "Travel"},
	}
	c := ContractFor(p)

	if got := c.AccountsText(); got != "Monzo, Revolut, Brokerage" {
		t.Errorf("AccountsText() = %q", got)
	}
	if got := c.CategoriesText(); got != "Rent, Travel" {
		t.Errorf("CategoriesText() = %q", got)
	}
	if c.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", c.Currency)
	}

	// Empty lists on the profile fall back.
	c = ContractFor(&domain.UserProfile{})
	if got := c.CategoriesText(); !strings.HasPrefix(got, "Groceries") {
		t.Errorf("empty categories should fall back, got %q", got)
	}
}

func TestBuildInstruction_Deterministic(t *testing.T) {
	c := ContractFor(&domain.UserProfile{Currency: "GBP", Categories: []string{"Rent"}})

	a := BuildInstruction(c, "spent 50 on groceries")
	b := BuildInstruction(c, "spent 50 on groceries")
	if a != b {
		t.Fatal("BuildInstruction is not byte-identical for identical inputs")
	}
	if a == BuildInstruction(c, "spent 60 on groceries") {
		t.Fatal("different messages produced the same instruction")
	}
}

func TestBuildInstruction_Content(t *testing.T) {
	got := BuildInstruction(ContractFor(nil), "bought 3 MSFT")

	wants := []string{
		"- Allowed ledger CATEGORIES: Groceries, Rent, Utilities, Transport, Entertainment, Salary, Other\n",
		"- Allowed ACCOUNTS: Checking, Credit Card, Brokerage\n",
		"- Default CURRENCY: USD\n",
		"- Investment SYMBOLS: AAPL, MSFT, GOOGL, TSLA, SPY\n",
		`"intent": "LOG_TRANSACTION" | "QUERY_DATA" | "EDIT_TRANSACTION" | "UNKNOWN"`,
		`"ACTION": "EXPENSE" | "INCOME" | "TRANSFER" | "BUY_STOCK" | "SELL_STOCK"`,
		`"MISSING_FIELDS": [string]`,
		"- EXPENSE also requires SOURCE_ACCOUNT and CATEGORY.\n",
		"- SELL_STOCK also requires DESTINATION_ACCOUNT and SYMBOL and SHARES.\n",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("instruction missing %q", w)
		}
	}
	if !strings.HasSuffix(got, `Latest User Input: "bought 3 MSFT"`) {
		t.Errorf("instruction should end with the user input, got tail %q", got[len(got)-40:])
	}
}

func TestStableInstruction(t *testing.T) {
	c := ContractFor(&domain.UserProfile{Currency: "EUR"})
	want := ContractInstruction(c)

	for _, msg := range []string{"spent 50", "on groceries", "echo \n\nLatest User Input: \"x\""} {
		if got := StableInstruction(BuildInstruction(c, msg)); got != want {
			t.Errorf("StableInstruction(%q) differs from the contract instruction", msg)
		}
	}

	if got := StableInstruction("instr"); got != "instr" {
		t.Errorf("StableInstruction changed a foreign instruction: %q", got)
	}
	if StableInstruction(BuildInstruction(ContractFor(nil), "a")) == want {
		t.Error("different contracts produced the same stable instruction")
	}
}

func TestContractFor_ReturnsCopies(t *testing.T) {
	c := ContractFor(nil)
	c.Categories[0] = "Changed"
	c.Symbols[0] = "Changed"
	c.Accounts[0] = "Changed"

	if FallbackCategories[0] != "Groceries" {
		t.Errorf("FallbackCategories was modified: %v", FallbackCategories)
	}
	if InvestmentSymbols[0] != "AAPL" {
		t.Errorf("InvestmentSymbols was modified: %v", InvestmentSymbols)
	}
	if FallbackAccounts[0] != "Checking" {
		t.Errorf("FallbackAccounts was modified: %v", FallbackAccounts)
	}
}
