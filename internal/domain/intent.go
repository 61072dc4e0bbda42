package domain

import "strings"

// Intent classifies what the user asked for.
type Intent string

const (
	IntentLogTransaction  Intent = "LOG_TRANSACTION"
	IntentQueryData       Intent = "QUERY_DATA"
	IntentEditTransaction Intent = "EDIT_TRANSACTION"
	IntentUnknown         Intent = "UNKNOWN"
)

// Intents lists every intent the model may return, in schema order.
var Intents = []Intent{IntentLogTransaction, IntentQueryData, IntentEditTransaction, IntentUnknown}

// Action is the kind of money movement inside a LOG_TRANSACTION intent.
type Action string

const (
	ActionExpense   Action = "EXPENSE"
	ActionIncome    Action = "INCOME"
	ActionTransfer  Action = "TRANSFER"
	ActionBuyStock  Action = "BUY_STOCK"
	ActionSellStock Action = "SELL_STOCK"
)

// Actions lists every supported action, in schema order.
var Actions = []Action{ActionExpense, ActionIncome, ActionTransfer, ActionBuyStock, ActionSellStock}

// NormalizeAction upper-cases and trims a model supplied action name.
func NormalizeAction(s string) Action {
	return Action(strings.ToUpper(strings.TrimSpace(s)))
}

// IsTrade reports whether the action moves shares.
func (a Action) IsTrade() bool {
	return a == ActionBuyStock || a == ActionSellStock
}

// Field names an entity key in the model's JSON reply.
type Field string

const (
	FieldAction             Field = "ACTION"
	FieldAmount             Field = "AMOUNT"
	FieldCurrency           Field = "CURRENCY"
	FieldDate               Field = "DATE"
	FieldDescription        Field = "DESCRIPTION"
	FieldSourceAccount      Field = "SOURCE_ACCOUNT"
	FieldDestinationAccount Field = "DESTINATION_ACCOUNT"
	FieldCategory           Field = "CATEGORY"
	FieldSymbol             Field = "SYMBOL"
	FieldShares             Field = "SHARES"
)
