package nlu

import (
	"github.com/dvloznov/finansmanager/internal/domain"
)

// actionRequirements lists the fields each action needs beyond ACTION and AMOUNT.
var actionRequirements = map[domain.Action][]domain.Field{
	domain.ActionExpense:   {domain.FieldSourceAccount, domain.FieldCategory},
	domain.ActionIncome:    {domain.FieldDestinationAccount, domain.FieldCategory},
	domain.ActionTransfer:  {domain.FieldSourceAccount, domain.FieldDestinationAccount},
	domain.ActionBuyStock:  {domain.FieldSourceAccount, domain.FieldSymbol, domain.FieldShares},
	domain.ActionSellStock: {domain.FieldDestinationAccount, domain.FieldSymbol, domain.FieldShares},
}

// RequiredFields returns every field a LOG_TRANSACTION with this action must
// carry. Unknown actions only require ACTION and AMOUNT.
func RequiredFields(a domain.Action) []domain.Field {
	fields := []domain.Field{domain.FieldAction, domain.FieldAmount}
	return append(fields, actionRequirements[a]...)
}

// MissingFields computes the required fields absent from e. It is only used
// when the model omitted MISSING_FIELDS; a reported list is trusted as is.
func MissingFields(e domain.EntitySet) []string {
	missing := []string{}
	for _, f := range RequiredFields(e.ActionName()) {
		if !e.Has(f) {
			missing = append(missing, string(f))
		}
	}
	return missing
}

// EffectiveMissing returns the reported MISSING_FIELDS, or the computed list
// when the model left it out.
func EffectiveMissing(e domain.EntitySet) []string {
	if e.MissingFields != nil {
		return e.MissingFields
	}
	return MissingFields(e)
}
