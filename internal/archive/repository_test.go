package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndListExpenses(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := core.Expense{
		ID:       "e1",
		Name:     "groceries",
		Category: "Food",
		Amount:   core.Money{Cents: 1500},
		Date:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := core.Expense{
		ID:       "e2",
		Name:     "flight",
		Category: "Travel",
		Amount:   core.Money{Cents: 45000},
		Date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveExpense(ctx, "user1", older); err != nil {
		t.Fatalf("SaveExpense: %v", err)
	}
	if err := repo.SaveExpense(ctx, "user1", newer); err != nil {
		t.Fatalf("SaveExpense: %v", err)
	}
	// A record belonging to someone else must not leak into the listing.
	if err := repo.SaveExpense(ctx, "user2", core.Expense{
		ID: "e3", Name: "rent", Amount: core.Money{Cents: 90000},
		Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListExpenses(ctx, "user1")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d expenses, want 2", len(got))
	}
	if got[0].ID != "e2" || got[1].ID != "e1" {
		t.Errorf("order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}
	if got[0].Name != "flight" || got[0].Category != "Travel" || got[0].Amount.Cents != 45000 {
		t.Errorf("round trip = %+v", got[0])
	}
	if !got[1].Date.Equal(older.Date) {
		t.Errorf("date = %v, want %v", got[1].Date, older.Date)
	}
}

func TestSaveExpenseIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	e := core.Expense{
		ID:     "e1",
		Name:   "coffee",
		Amount: core.Money{Cents: 350},
		Date:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveExpense(ctx, "user1", e); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveExpense(ctx, "user1", e); err != nil {
		t.Fatalf("redelivery must not fail: %v", err)
	}

	got, err := repo.ListExpenses(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rows after redelivery, want 1", len(got))
	}
}

func TestSaveAndListIncomes(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	in := core.Income{
		ID:     "i1",
		Amount: core.Money{Cents: 250000},
		Date:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveIncome(ctx, "user1", in); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}

	got, err := repo.ListIncomes(ctx, "user1")
	if err != nil {
		t.Fatalf("ListIncomes: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Cents != 250000 || !got[0].Date.Equal(in.Date) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestListEmptyUser(t *testing.T) {
	repo := newTestRepository(t)

	expenses, err := repo.ListExpenses(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(expenses) != 0 {
		t.Errorf("expenses = %v, want none", expenses)
	}
}
