package nlu

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finansmanager/internal/domain"
)

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		action domain.Action
		want   []domain.Field
	}{
		{domain.ActionExpense, []domain.Field{"ACTION", "AMOUNT", "SOURCE_ACCOUNT", "CATEGORY"}},
		{domain.ActionIncome, []domain.Field{"ACTION", "AMOUNT", "DESTINATION_ACCOUNT", "CATEGORY"}},
		{domain.ActionTransfer, []domain.Field{"ACTION", "AMOUNT", "SOURCE_ACCOUNT", "DESTINATION_ACCOUNT"}},
		{domain.ActionBuyStock, []domain.Field{"ACTION", "AMOUNT", "SOURCE_ACCOUNT", "SYMBOL", "SHARES"}},
		{"", []domain.Field{"ACTION", "AMOUNT"}},
	}
	for _, tt := range tests {
		if got := RequiredFields(tt.action); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("RequiredFields(%q) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestEffectiveMissing(t *testing.T) {
	amount := decimal.NewFromInt(12)

	// Reported list is trusted even if it disagrees with the entities.
	reported := domain.EntitySet{MissingFields: []string{"DATE"}}
	if got := EffectiveMissing(reported); !reflect.DeepEqual(got, []string{"DATE"}) {
		t.Errorf("EffectiveMissing(reported) = %v", got)
	}

	derived := domain.EntitySet{
		Action:   domain.StringPtr("EXPENSE"),
		Amount:   &amount,
		Category: domain.StringPtr("  "),
	}
	want := []string{"SOURCE_ACCOUNT", "CATEGORY"}
	if got := EffectiveMissing(derived); !reflect.DeepEqual(got, want) {
		t.Errorf("EffectiveMissing(derived) = %v, want %v", got, want)
	}
}
