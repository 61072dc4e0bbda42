package advice

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ValidCurrency reports whether code is an ISO 4217 currency known to go-money.
func ValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}

// FormatMoney renders an amount in the currency's own notation, e.g. $1,234.50.
func FormatMoney(amount decimal.Decimal, code string) string {
	// money.New never returns a nil currency; unknown codes get a generic format.
	cur := *money.New(0, strings.ToUpper(code)).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
