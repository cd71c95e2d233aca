package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateLineSchedule(t *testing.T) {
	tests := []struct {
		name                string
		freq                Frequency
		start, end, oneTime YM
		want                error
	}{
		{"monthly with start only", Monthly, 202501, 0, 0, nil},
		{"monthly with range", Monthly, 202501, 202512, 0, nil},
		{"monthly same start and end", Monthly, 202501, 202501, 0, nil},
		{"monthly missing start", Monthly, 0, 0, 0, ErrStartRequired},
		{"monthly missing start with end", Monthly, 0, 202512, 0, ErrStartRequired},
		{"monthly end before start", Monthly, 202501, 202412, 0, ErrEndBeforeStart},
		{"monthly with one_time set", Monthly, 202501, 0, 202506, ErrOneTimeForbidden},
		{"one_time valid", OneTime, 0, 0, 202506, nil},
		{"one_time missing target", OneTime, 0, 0, 0, ErrOneTimeRequired},
		{"one_time with start set", OneTime, 202501, 0, 202506, ErrRangeForbidden},
		{"one_time with end set", OneTime, 0, 202512, 202506, ErrRangeForbidden},
		{"unknown frequency", Frequency("weekly"), 202501, 0, 0, ErrInvalidFrequency},
		{"empty frequency", Frequency(""), 202501, 0, 0, ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLineSchedule(tt.freq, tt.start, tt.end, tt.oneTime)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateLineSchedule() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBudgetLineValidate(t *testing.T) {
	good := BudgetLine{
		Type:      Income,
		Category:  "Salary",
		Amount:    Money{Cents: 100000},
		Currency:  "EUR",
		Frequency: Monthly,
		StartYM:   202501,
		EndYM:     202512,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []BudgetLine{
		{Type: "transfer", Category: "c", Amount: Money{Cents: 1}, Frequency: Monthly, StartYM: 202501},
		{Type: Expense, Category: "", Amount: Money{Cents: 1}, Frequency: Monthly, StartYM: 202501},
		{Type: Expense, Category: "c", Amount: Money{Cents: 0}, Frequency: Monthly, StartYM: 202501},
		{Type: Expense, Category: "c", Amount: Money{Cents: 1}, Frequency: Monthly},
		{Type: Expense, Category: "c", Amount: Money{Cents: 1}, Frequency: OneTime, StartYM: 202501, OneTimeYM: 202506},
	}
	for i, l := range bads {
		if err := l.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetLineAppliesTo(t *testing.T) {
	monthly := BudgetLine{Frequency: Monthly, StartYM: 202501, EndYM: 202512}
	if !monthly.AppliesTo(202506) {
		t.Fatal("monthly line should apply inside its window")
	}
	if monthly.AppliesTo(202601) {
		t.Fatal("monthly line should not apply after its window")
	}
	openEnded := BudgetLine{Frequency: Monthly, StartYM: 202501}
	if !openEnded.AppliesTo(203001) {
		t.Fatal("open-ended monthly line should apply to any later month")
	}
	oneOff := BudgetLine{Frequency: OneTime, OneTimeYM: 202506}
	if !oneOff.AppliesTo(202506) || oneOff.AppliesTo(202507) {
		t.Fatal("one_time line should apply only to its target month")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Category: "Groceries",
		Amount:   Money{Cents: 4530},
		Currency: "EUR",
		TxnDate:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "x", Category: "c", Amount: Money{Cents: 1}, TxnDate: good.TxnDate},
		{Type: Income, Category: " ", Amount: Money{Cents: 1}, TxnDate: good.TxnDate},
		{Type: Income, Category: "c", Amount: Money{Cents: -5}, TxnDate: good.TxnDate},
		{Type: Income, Category: "c", Amount: Money{Cents: 1}},
	}
	for i, txn := range bads {
		if err := txn.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
