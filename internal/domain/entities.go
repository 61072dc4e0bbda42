package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EntitySet is the flat bag of extracted values returned by the model.
// Absent values stay nil. MissingFields is nil when the model omitted the
// list and empty when it reported nothing missing.
type EntitySet struct {
	Action             *string          `json:"ACTION,omitempty"`
	Amount             *decimal.Decimal `json:"AMOUNT,omitempty"`
	Currency           *string          `json:"CURRENCY,omitempty"`
	Date               *string          `json:"DATE,omitempty"`
	Description        *string          `json:"DESCRIPTION,omitempty"`
	SourceAccount      *string          `json:"SOURCE_ACCOUNT,omitempty"`
	DestinationAccount *string          `json:"DESTINATION_ACCOUNT,omitempty"`
	Category           *string          `json:"CATEGORY,omitempty"`
	Symbol             *string          `json:"SYMBOL,omitempty"`
	Shares             *decimal.Decimal `json:"SHARES,omitempty"`
	MissingFields      []string         `json:"MISSING_FIELDS"`
}

// NLUResult is the parsed model reply.
type NLUResult struct {
	Intent   Intent    `json:"intent"`
	Entities EntitySet `json:"entities"`
}

// Has reports whether the field carries a non-blank value.
func (e EntitySet) Has(f Field) bool {
	switch f {
	case FieldAmount:
		return e.Amount != nil
	case FieldShares:
		return e.Shares != nil
	}
	return strings.TrimSpace(e.Text(f)) != ""
}

// Text returns the string value of a field, or "" when absent.
// Numeric fields are rendered without rounding.
func (e EntitySet) Text(f Field) string {
	var p *string
	switch f {
	case FieldAction:
		p = e.Action
	case FieldCurrency:
		p = e.Currency
	case FieldDate:
		p = e.Date
	case FieldDescription:
		p = e.Description
	case FieldSourceAccount:
		p = e.SourceAccount
	case FieldDestinationAccount:
		p = e.DestinationAccount
	case FieldCategory:
		p = e.Category
	case FieldSymbol:
		p = e.Symbol
	case FieldAmount:
		if e.Amount != nil {
			return e.Amount.String()
		}
	case FieldShares:
		if e.Shares != nil {
			return e.Shares.String()
		}
	}
	if p == nil {
		return ""
	}
	return *p
}

// ActionName returns the normalized ACTION, or "" when absent.
func (e EntitySet) ActionName() Action {
	if e.Action == nil {
		return ""
	}
	return NormalizeAction(*e.Action)
}

// Clone returns a deep copy so stored records never alias caller memory.
func (e EntitySet) Clone() EntitySet {
	out := e
	out.Action = cloneString(e.Action)
	out.Currency = cloneString(e.Currency)
	out.Date = cloneString(e.Date)
	out.Description = cloneString(e.Description)
	out.SourceAccount = cloneString(e.SourceAccount)
	out.DestinationAccount = cloneString(e.DestinationAccount)
	out.Category = cloneString(e.Category)
	out.Symbol = cloneString(e.Symbol)
	if e.Amount != nil {
		v := *e.Amount
		out.Amount = &v
	}
	if e.Shares != nil {
		v := *e.Shares
		out.Shares = &v
	}
	if e.MissingFields != nil {
		out.MissingFields = append([]string{}, e.MissingFields...)
	}
	return out
}

// StringPtr is a convenience for building entity sets.
func StringPtr(s string) *string {
	return &s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
