package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative entry")
	}
}

func TestExpenseValidate(t *testing.T) {
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := Expense{
		Name:     "groceries",
		Category: "Food",
		Amount:   Money{Cents: 100},
		Date:     date,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// A missing category is allowed; it buckets under the empty string.
	good.Category = ""
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok without category, got %v", err)
	}

	bads := []Expense{
		{Name: "", Amount: Money{Cents: 1}, Date: date},
		{Name: "a", Amount: Money{Cents: 0}, Date: date},
		{Name: "a", Amount: Money{Cents: 1}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestIncomeValidate(t *testing.T) {
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := (Income{Amount: Money{Cents: 500}, Date: date}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Income{Amount: Money{Cents: 500}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
	if err := (Income{Amount: Money{}, Date: date}).Validate(); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}
