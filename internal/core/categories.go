package core

// ExpenseCategories is the picker list offered to clients. Writes are not
// validated against it; any category string is stored as-is.
var ExpenseCategories = []string{
	"Rent/Mortgage",
	"Food",
	"Groceries",
	"Transportation",
	"Healthcare",
	"Utilities",
	"Entertainment",
	"Insurance",
	"Accessories",
	"Investments",
	"Subscriptions",
	"Travel",
	"Other",
}
