package core

import (
	"reflect"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleExpenses() []Expense {
	lastYear := now.AddDate(-1, 0, 0)
	return []Expense{
		{ID: "e1", Name: "lunch", Category: "Food", Amount: Money{Cents: 1000}, Date: now},
		{ID: "e2", Name: "snack", Category: "Food", Amount: Money{Cents: 500}, Date: now},
		{ID: "e3", Name: "flight", Category: "Travel", Amount: Money{Cents: 2000}, Date: lastYear},
	}
}

func TestCategoryTotalsScenario(t *testing.T) {
	expenses := sampleExpenses()

	day := CategoryTotals(FilterExpenses(expenses, PeriodDay, now))
	wantDay := []CategoryAmount{{Name: "Food", Amount: Money{Cents: 1500}}}
	if !reflect.DeepEqual(day, wantDay) {
		t.Fatalf("day totals = %+v, want %+v", day, wantDay)
	}

	all := CategoryTotals(FilterExpenses(expenses, PeriodAll, now))
	wantAll := []CategoryAmount{
		{Name: "Food", Amount: Money{Cents: 1500}},
		{Name: "Travel", Amount: Money{Cents: 2000}},
	}
	if !reflect.DeepEqual(all, wantAll) {
		t.Fatalf("all totals = %+v, want %+v", all, wantAll)
	}
}

func TestCategoryTotalsConservation(t *testing.T) {
	expenses := sampleExpenses()
	expenses = append(expenses, Expense{ID: "e4", Name: "misc", Amount: Money{Cents: 777}, Date: now})

	var grand int64
	for _, e := range expenses {
		grand += e.Amount.Cents
	}
	var grouped int64
	for _, ca := range CategoryTotals(expenses) {
		grouped += ca.Amount.Cents
	}
	if grand != grouped {
		t.Fatalf("grouped sum %d != grand total %d", grouped, grand)
	}
}

func TestCategoryTotalsEmptyBucket(t *testing.T) {
	totals := CategoryTotals([]Expense{
		{Name: "a", Amount: Money{Cents: 10}, Date: now},
		{Name: "b", Category: "Zed", Amount: Money{Cents: 20}, Date: now},
	})
	// Empty-string bucket sorts first.
	if len(totals) != 2 || totals[0].Name != "" || totals[0].Amount.Cents != 10 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestFilterIdempotent(t *testing.T) {
	expenses := sampleExpenses()
	for _, p := range []Period{PeriodDay, PeriodMonth, PeriodYear, PeriodAll} {
		once := FilterExpenses(expenses, p, now)
		twice := FilterExpenses(once, p, now)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("period %s: second filter changed the set", p)
		}
	}
}

func TestFilterAllIsIdentity(t *testing.T) {
	expenses := sampleExpenses()
	got := FilterExpenses(expenses, PeriodAll, now)
	if !reflect.DeepEqual(got, expenses) {
		t.Fatalf("all-period filter dropped records: %+v", got)
	}
}

func TestInPeriodCalendarBoundaries(t *testing.T) {
	ref := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	cases := []struct {
		p    Period
		t    time.Time
		want bool
	}{
		{PeriodDay, time.Date(2025, 6, 15, 0, 0, 1, 0, time.UTC), true},
		{PeriodDay, time.Date(2025, 6, 16, 0, 0, 1, 0, time.UTC), false},
		{PeriodMonth, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{PeriodMonth, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{PeriodYear, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{PeriodYear, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), false},
		{PeriodAll, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), true},
	}
	for i, tc := range cases {
		if got := InPeriod(tc.p, ref, tc.t); got != tc.want {
			t.Errorf("case %d: InPeriod(%s, ref, %v) = %v, want %v", i, tc.p, tc.t, got, tc.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "month", "year", "all"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParsePeriod("week"); err == nil {
		t.Errorf("ParsePeriod(\"week\") expected error")
	}
}
