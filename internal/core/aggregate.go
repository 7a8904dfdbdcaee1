package core

import (
	"sort"
	"time"
)

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryTotals groups expenses by category and sums the amounts per group.
// Records without a category land in the empty-string bucket. The result is
// sorted alphabetically by category for display stability.
func CategoryTotals(expenses []Expense) []CategoryAmount {
	sums := make(map[string]int64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FilterExpenses keeps the expenses whose date falls in the same calendar
// period as ref.
func FilterExpenses(expenses []Expense, p Period, ref time.Time) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if InPeriod(p, ref, e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// FilterIncomes keeps the incomes whose date falls in the same calendar
// period as ref.
func FilterIncomes(incomes []Income, p Period, ref time.Time) []Income {
	out := make([]Income, 0, len(incomes))
	for _, in := range incomes {
		if InPeriod(p, ref, in.Date) {
			out = append(out, in)
		}
	}
	return out
}

// SumExpenses reduces the expenses falling in the period to a single amount.
func SumExpenses(expenses []Expense, p Period, ref time.Time) Money {
	var cents int64
	for _, e := range expenses {
		if InPeriod(p, ref, e.Date) {
			cents += e.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// SumIncomes reduces the incomes falling in the period to a single amount.
func SumIncomes(incomes []Income, p Period, ref time.Time) Money {
	var cents int64
	for _, in := range incomes {
		if InPeriod(p, ref, in.Date) {
			cents += in.Amount.Cents
		}
	}
	return Money{Cents: cents}
}
