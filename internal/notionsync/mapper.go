package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finansmanager/internal/domain"
)

// Property names of the Notion transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropUserID        = "User ID"
	PropDate          = "Date"
	PropAction        = "Action"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropCategory      = "Category"
	PropSource        = "Source Account"
	PropDestination   = "Destination Account"
	PropSymbol        = "Symbol"
	PropShares        = "Shares"
)

// TransactionProperties maps a simulated transaction to page properties.
// Blank entities are left out so an update never clears a column.
func TransactionProperties(tx *domain.SimulatedTransaction) notionapi.Properties {
	e := tx.Entities

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(title(tx))},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropUserID:        notionapi.RichTextProperty{RichText: richText(tx.UserID)},
		PropDate:          notionapi.DateProperty{Date: &notionapi.DateObject{Start: transactionDate(tx)}},
	}

	if action := e.ActionName(); action != "" {
		props[PropAction] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(action)}}
	}
	if e.Amount != nil {
		props[PropAmount] = notionapi.NumberProperty{Number: toFloat(*e.Amount)}
	}
	if e.Shares != nil {
		props[PropShares] = notionapi.NumberProperty{Number: toFloat(*e.Shares)}
	}

	selects := map[string]domain.Field{
		PropCurrency: domain.FieldCurrency,
		PropCategory: domain.FieldCategory,
	}
	for prop, field := range selects {
		if e.Has(field) {
			props[prop] = notionapi.SelectProperty{Select: notionapi.Option{Name: e.Text(field)}}
		}
	}

	texts := map[string]domain.Field{
		PropSource:      domain.FieldSourceAccount,
		PropDestination: domain.FieldDestinationAccount,
		PropSymbol:      domain.FieldSymbol,
	}
	for prop, field := range texts {
		if e.Has(field) {
			props[prop] = notionapi.RichTextProperty{RichText: richText(e.Text(field))}
		}
	}

	return props
}

func title(tx *domain.SimulatedTransaction) string {
	e := tx.Entities
	if e.Has(domain.FieldDescription) {
		return e.Text(domain.FieldDescription)
	}
	parts := []string{string(e.ActionName())}
	if e.Amount != nil {
		parts = append(parts, strings.TrimSpace(e.Text(domain.FieldCurrency)+" "+e.Amount.StringFixed(2)))
	}
	if s := strings.TrimSpace(strings.Join(parts, " ")); s != "" {
		return s
	}
	return tx.ID
}

// transactionDate prefers the DATE entity and falls back to the creation time.
func transactionDate(tx *domain.SimulatedTransaction) *notionapi.Date {
	t := tx.CreatedAt.UTC()
	if parsed, err := time.Parse(time.DateOnly, tx.Entities.Text(domain.FieldDate)); err == nil {
		t = parsed
	}
	d := notionapi.Date(t)
	return &d
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ExtractTransactionID reads the Transaction ID property of a queried page.
// Returns "" if not found.
func ExtractTransactionID(page notionapi.Page) string {
	return plainText(page, PropTransactionID)
}

// ExtractUserID reads the User ID property of a queried page.
func ExtractUserID(page notionapi.Page) string {
	return plainText(page, PropUserID)
}

func plainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
