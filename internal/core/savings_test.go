package core

import (
	"testing"
	"time"
)

func TestCalculateSavingsEmpty(t *testing.T) {
	rows := CalculateSavings(nil, nil, now)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.Amount.Cents != 0 {
			t.Errorf("row %d: savings with no records = %d, want 0", i, r.Amount.Cents)
		}
	}
}

func TestCalculateSavings(t *testing.T) {
	expenses := []Expense{
		{Name: "lunch", Amount: Money{Cents: 1000}, Date: now},
		{Name: "rent", Amount: Money{Cents: 50000}, Date: now.AddDate(0, 0, -3)}, // same month, not today
	}
	incomes := []Income{
		{Amount: Money{Cents: 2500}, Date: now},
		{Amount: Money{Cents: 100000}, Date: now.AddDate(0, -2, 0)}, // same year, different month
	}

	rows := CalculateSavings(expenses, incomes, now)

	// daily: 2500 - 1000
	if rows[0].Amount.Cents != 1500 {
		t.Errorf("daily savings = %d, want 1500", rows[0].Amount.Cents)
	}
	// monthly filters against the current month: 2500 - 51000
	if rows[1].Amount.Cents != -48500 {
		t.Errorf("monthly savings = %d, want -48500", rows[1].Amount.Cents)
	}
	// yearly: 102500 - 51000
	if rows[2].Amount.Cents != 51500 {
		t.Errorf("yearly savings = %d, want 51500", rows[2].Amount.Cents)
	}
	// all-time equals yearly here
	if rows[3].Amount.Cents != 51500 {
		t.Errorf("total savings = %d, want 51500", rows[3].Amount.Cents)
	}
}

func TestCalculateSavingsLabels(t *testing.T) {
	rows := CalculateSavings(nil, nil, now)
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if !rows[0].Period.Equal(today) {
		t.Errorf("daily label = %v, want %v", rows[0].Period, today)
	}
	// Monthly and yearly rows carry the previous-period label on purpose.
	if !rows[1].Period.Equal(today.AddDate(0, -1, 0)) {
		t.Errorf("monthly label = %v, want previous month", rows[1].Period)
	}
	if !rows[2].Period.Equal(today.AddDate(-1, 0, 0)) {
		t.Errorf("yearly label = %v, want previous year", rows[2].Period)
	}
	if !rows[3].Period.Equal(today) {
		t.Errorf("total label = %v, want %v", rows[3].Period, today)
	}
}
