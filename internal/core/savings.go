package core

import "time"

// Savings is one derived chart row: a period label and the net amount
// (income minus expense) for that period. Never persisted; recomputed on
// every data refresh.
type Savings struct {
	Period time.Time
	Amount Money
}

// CalculateSavings produces the four savings rows: today, monthly, yearly,
// and all-time, each against the records in the corresponding calendar
// period of now.
//
// The monthly and yearly rows are labeled with a date one month/year in the
// past while the records are filtered against the CURRENT month/year.
// Chart clients key off this labeling, so it is kept as-is rather than
// corrected; see DESIGN.md.
func CalculateSavings(expenses []Expense, incomes []Income, now time.Time) []Savings {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	rows := []Savings{
		{Period: today},
		{Period: today.AddDate(0, -1, 0)},
		{Period: today.AddDate(-1, 0, 0)},
		{Period: today},
	}
	periods := []Period{PeriodDay, PeriodMonth, PeriodYear, PeriodAll}
	for i, p := range periods {
		rows[i].Amount = SumIncomes(incomes, p, now).Sub(SumExpenses(expenses, p, now))
	}
	return rows
}
