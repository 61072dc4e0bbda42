package nlu

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dvloznov/finansmanager/internal/domain"
)

const expenseReply = `{"intent":"LOG_TRANSACTION","entities":{"ACTION":"expense","AMOUNT":50,"CURRENCY":"USD","SOURCE_ACCOUNT":"Checking","CATEGORY":"Groceries","MISSING_FIELDS":[]}}`

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantIntnt domain.Intent
	}{
		{name: "plain object", raw: expenseReply, wantIntnt: domain.IntentLogTransaction},
		{name: "json fence", raw: "```json\n" + expenseReply + "\n```", wantIntnt: domain.IntentLogTransaction},
		{name: "bare fence", raw: "```\n" + expenseReply + "\n```", wantIntnt: domain.IntentLogTransaction},
		{name: "surrounding prose", raw: "Sure! " + expenseReply + " Hope that helps.", wantIntnt: domain.IntentLogTransaction},
		{name: "lower case intent", raw: `{"intent":"query_data","entities":{}}`, wantIntnt: domain.IntentQueryData},
		{name: "prose only", raw: "I am not sure what you mean.", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "array", raw: `[1,2,3]`, wantErr: true},
		{name: "truncated", raw: `{"intent":"LOG_TRANSACTION","entities":{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var perr *domain.ModelParseError
				if !errors.As(err, &perr) {
					t.Errorf("error should be *domain.ModelParseError, got %T", err)
				}
				return
			}
			if got.Intent != tt.wantIntnt {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.wantIntnt)
			}
		})
	}
}

func TestParse_Entities(t *testing.T) {
	res, err := Parse(expenseReply)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := res.Entities
	if e.ActionName() != domain.ActionExpense {
		t.Errorf("ActionName() = %q", e.ActionName())
	}
	if e.Amount == nil || e.Amount.StringFixed(2) != "50.00" {
		t.Errorf("Amount = %v", e.Amount)
	}
	if e.MissingFields == nil || len(e.MissingFields) != 0 {
		t.Errorf("MissingFields = %#v, want empty non-nil", e.MissingFields)
	}
}

func TestParse_Idempotent(t *testing.T) {
	raws := []string{expenseReply, "```json\n" + expenseReply + "\n```", "not json"}
	for _, raw := range raws {
		a, errA := Parse(raw)
		b, errB := Parse(raw)
		if (errA == nil) != (errB == nil) {
			t.Fatalf("Parse(%q) errors differ: %v vs %v", raw, errA, errB)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Parse(%q) not idempotent: %#v vs %#v", raw, a, b)
		}
	}
}

func TestParseDocument_Verbatim(t *testing.T) {
	doc, err := ParseDocument("```json\n{\n  \"intent\": \"UNKNOWN\",\n  \"extra\": [1, 2]\n}\n```")
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if got := string(doc); got != `{"intent":"UNKNOWN","extra":[1,2]}` {
		t.Errorf("ParseDocument() = %s", got)
	}
}
