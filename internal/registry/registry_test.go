package registry

import (
	"testing"
	"time"

	"tally/internal/core"
)

func record(id string, cents int64) core.Expense {
	return core.Expense{
		ID:     id,
		Name:   id,
		Amount: core.Money{Cents: cents},
		Date:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestSubscribeDeliversSnapshot(t *testing.T) {
	r := New()
	r.Notify(ChangeUpdate, []core.Expense{record("e1", 100)}, nil)

	var got []core.Expense
	calls := 0
	r.Subscribe(ScopeUsers, func(_ Change, expenses []core.Expense, _ []core.Income) {
		calls++
		got = expenses
	})

	if calls != 1 {
		t.Fatalf("expected immediate snapshot delivery, got %d calls", calls)
	}
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestSubscribeEmptySnapshot(t *testing.T) {
	r := New()
	calls := 0
	r.Subscribe(ScopeAll, func(_ Change, expenses []core.Expense, incomes []core.Income) {
		calls++
		if len(expenses) != 0 || len(incomes) != 0 {
			t.Errorf("expected empty snapshot, got %d/%d", len(expenses), len(incomes))
		}
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestNotifyFanOut(t *testing.T) {
	r := New()
	counts := make(map[string]int)
	r.Subscribe(ScopeUsers, func(Change, []core.Expense, []core.Income) { counts["users"]++ })
	r.Subscribe(ScopeAll, func(Change, []core.Expense, []core.Income) { counts["all"]++ })

	r.Notify(ChangeAdd, []core.Expense{record("e1", 100)}, nil)

	// 1 snapshot delivery each + 1 fan-out each
	if counts["users"] != 2 || counts["all"] != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := New()
	calls := 0
	sub := r.Subscribe(ScopeUsers, func(Change, []core.Expense, []core.Income) { calls++ })
	r.Unsubscribe(sub)
	r.Notify(ChangeUpdate, nil, nil)

	if calls != 1 { // only the initial snapshot
		t.Fatalf("expected no delivery after unsubscribe, calls = %d", calls)
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}

	// Double-unsubscribe and nil are no-ops.
	r.Unsubscribe(sub)
	r.Unsubscribe(nil)
}

func TestNotifyCopiesSlices(t *testing.T) {
	r := New()
	var seen []core.Expense
	r.Subscribe(ScopeUsers, func(_ Change, expenses []core.Expense, _ []core.Income) {
		seen = expenses
	})

	in := []core.Expense{record("e1", 100)}
	r.Notify(ChangeUpdate, in, nil)
	in[0].ID = "mutated"

	if seen[0].ID != "e1" {
		t.Fatalf("listener saw caller mutation: %s", seen[0].ID)
	}
}
