package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/registry"
	"tally/internal/store/memory"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	kind, recordID, userID string
}

func (p *capturingPublisher) PublishRecordWritten(_ context.Context, kind, recordID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind, recordID, userID})
	return nil
}

func (p *capturingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func newTestGateway(t *testing.T) (*Gateway, *memory.Store, *capturingPublisher) {
	t.Helper()
	st := memory.New()
	pub := &capturingPublisher{}
	g := New(st, pub, nil)
	t.Cleanup(g.Close)
	return g, st, pub
}

func mustAccount(t *testing.T, g *Gateway, email string) core.User {
	t.Helper()
	u, err := g.CreateAccount(context.Background(), email, "s3cret")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return u
}

func TestCreateAccountAndSignIn(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()

	u := mustAccount(t, g, "pat@example.com")
	if u.ID == "" {
		t.Fatal("account has no identifier")
	}
	if len(u.ExpenseIDs) != 0 || len(u.IncomeIDs) != 0 {
		t.Errorf("new account refs = %v / %v, want empty", u.ExpenseIDs, u.IncomeIDs)
	}

	signedIn, err := g.SignIn(ctx, "pat@example.com", "s3cret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signedIn.ID != u.ID {
		t.Errorf("signed-in ID = %s, want %s", signedIn.ID, u.ID)
	}
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	g, _, _ := newTestGateway(t)
	mustAccount(t, g, "pat@example.com")

	_, err := g.CreateAccount(context.Background(), "pat@example.com", "another")
	if !errors.Is(err, auth.ErrEmailInUse) {
		t.Errorf("err = %v, want ErrEmailInUse", err)
	}
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()

	if _, err := g.CreateAccount(ctx, "not-an-email", "s3cret"); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Errorf("bad email err = %v, want ErrInvalidEmail", err)
	}
	if _, err := g.CreateAccount(ctx, "ok@example.com", ""); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("empty password err = %v, want ErrWeakPassword", err)
	}
}

func TestSignInWrongCredentials(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	mustAccount(t, g, "pat@example.com")

	if _, err := g.SignIn(ctx, "pat@example.com", "wrong"); !errors.Is(err, auth.ErrWrongCredentials) {
		t.Errorf("wrong password err = %v, want ErrWrongCredentials", err)
	}
	if _, err := g.SignIn(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, auth.ErrWrongCredentials) {
		t.Errorf("unknown email err = %v, want ErrWrongCredentials", err)
	}
}

func TestAddExpensePersistsLinksAndPublishes(t *testing.T) {
	g, st, pub := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	id, err := g.AddExpense(ctx, u.ID, core.Expense{
		Name:     "lunch",
		Category: "Food",
		Amount:   core.Money{Cents: 1550},
		Date:     time.Now(),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if id == "" {
		t.Fatal("no identifier returned")
	}

	got, err := st.GetExpense(ctx, id)
	if err != nil {
		t.Fatalf("expense not persisted: %v", err)
	}
	if got.Name != "lunch" || got.Amount.Cents != 1550 {
		t.Errorf("persisted = %+v", got)
	}

	stored, err := st.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.ExpenseIDs) != 1 || stored.ExpenseIDs[0] != id {
		t.Errorf("ExpenseIDs = %v, want [%s]", stored.ExpenseIDs, id)
	}

	events := pub.all()
	if len(events) != 1 || events[0] != (publishedEvent{amqp.KindExpense, id, u.ID}) {
		t.Errorf("published = %v", events)
	}
}

func TestAddExpenseRejectsInvalidRecord(t *testing.T) {
	g, _, pub := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	_, err := g.AddExpense(ctx, u.ID, core.Expense{
		Name:   "free lunch",
		Amount: core.Money{Cents: 0},
		Date:   time.Now(),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
	if len(pub.all()) != 0 {
		t.Error("rejected record must not be published")
	}
}

func TestAddExpenseToUnknownUserFails(t *testing.T) {
	g, _, _ := newTestGateway(t)

	_, err := g.AddExpense(context.Background(), "missing", core.Expense{
		Name:   "lunch",
		Amount: core.Money{Cents: 100},
		Date:   time.Now(),
	})
	if err == nil {
		t.Fatal("expected link failure for unknown user")
	}
}

func TestAddIncome(t *testing.T) {
	g, st, pub := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	id, err := g.AddIncome(ctx, u.ID, core.Income{
		Amount: core.Money{Cents: 250000},
		Date:   time.Now(),
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	stored, err := st.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.IncomeIDs) != 1 || stored.IncomeIDs[0] != id {
		t.Errorf("IncomeIDs = %v, want [%s]", stored.IncomeIDs, id)
	}
	events := pub.all()
	if len(events) != 1 || events[0].kind != amqp.KindIncome {
		t.Errorf("published = %v", events)
	}
}

func TestFetchUserDataResolvesReferences(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	first, err := g.AddExpense(ctx, u.ID, core.Expense{Name: "a", Amount: core.Money{Cents: 100}, Date: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.AddExpense(ctx, u.ID, core.Expense{Name: "b", Amount: core.Money{Cents: 200}, Date: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddIncome(ctx, u.ID, core.Income{Amount: core.Money{Cents: 5000}, Date: time.Now()}); err != nil {
		t.Fatal(err)
	}

	expenses, incomes, err := g.FetchUserData(ctx, u.ID)
	if err != nil {
		t.Fatalf("FetchUserData: %v", err)
	}
	if len(expenses) != 2 || len(incomes) != 1 {
		t.Fatalf("got %d expenses, %d incomes", len(expenses), len(incomes))
	}
	// Reference order survives the concurrent resolve.
	if expenses[0].ID != first || expenses[1].ID != second {
		t.Errorf("order = [%s %s], want [%s %s]", expenses[0].ID, expenses[1].ID, first, second)
	}
}

func TestFetchUserDataOmitsUnresolvedReferences(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	if _, err := g.AddExpense(ctx, u.ID, core.Expense{Name: "kept", Amount: core.Money{Cents: 100}, Date: time.Now()}); err != nil {
		t.Fatal(err)
	}
	// A dangling reference must not fail the whole resolve.
	if err := g.AddExpenseToUser(ctx, u.ID, "no-such-document"); err != nil {
		t.Fatal(err)
	}

	expenses, _, err := g.FetchUserData(ctx, u.ID)
	if err != nil {
		t.Fatalf("FetchUserData: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Name != "kept" {
		t.Errorf("expenses = %+v, want only the resolvable record", expenses)
	}
}

func TestFetchUserDataUnknownUser(t *testing.T) {
	g, _, _ := newTestGateway(t)
	if _, _, err := g.FetchUserData(context.Background(), "missing"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestFetchNotifiesSubscribersExactlyOnce(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	var mu sync.Mutex
	var calls int
	sub := g.Subscribe(u.ID, registry.ScopeUsers, func(_ registry.Change, _ []core.Expense, _ []core.Income) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	defer g.Unsubscribe(u.ID, sub)

	// Wait out the immediate snapshot delivery and the background
	// resolve kicked off by Subscribe.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	})

	mu.Lock()
	before := calls
	mu.Unlock()

	if _, _, err := g.FetchUserData(ctx, u.ID); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	// One explicit fetch adds exactly one notification, even with zero
	// records to resolve.
	if calls != before+1 {
		t.Errorf("calls = %d, want %d", calls, before+1)
	}
}

func TestWatchTriggersResolveOnStoreChange(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	var mu sync.Mutex
	var latest []core.Expense
	sub := g.Subscribe(u.ID, registry.ScopeAll, func(_ registry.Change, expenses []core.Expense, _ []core.Income) {
		mu.Lock()
		latest = expenses
		mu.Unlock()
	})
	defer g.Unsubscribe(u.ID, sub)

	// Give the store watch time to attach before mutating.
	time.Sleep(50 * time.Millisecond)

	if _, err := g.AddExpense(ctx, u.ID, core.Expense{Name: "watched", Amount: core.Money{Cents: 900}, Date: time.Now()}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0].Name == "watched"
	})
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	g, _, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	var mu sync.Mutex
	var calls int
	sub := g.Subscribe(u.ID, registry.ScopeUsers, func(_ registry.Change, _ []core.Expense, _ []core.Income) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	})
	g.Unsubscribe(u.ID, sub)

	mu.Lock()
	before := calls
	mu.Unlock()

	if _, _, err := g.FetchUserData(ctx, u.ID); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Errorf("calls = %d after unsubscribe, want %d", calls, before)
	}
}

func TestRemoveUser(t *testing.T) {
	g, st, _ := newTestGateway(t)
	ctx := context.Background()
	u := mustAccount(t, g, "pat@example.com")

	if err := g.RemoveUser(ctx, u.ID); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if _, err := st.GetUser(ctx, u.ID); err == nil {
		t.Error("user document still present")
	}
	if err := g.RemoveUser(ctx, u.ID); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("second remove err = %v, want ErrUserNotFound", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
