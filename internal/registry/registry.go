// Package registry implements the one-to-many data-change notification
// registry. Components subscribe with an interest scope and are invoked
// whenever the gateway's resolved record set changes.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"tally/internal/core"
)

// Change describes what kind of mutation produced a notification.
type Change string

const (
	ChangeAdd    Change = "add"
	ChangeRemove Change = "remove"
	ChangeUpdate Change = "update"
)

// Scope is a subscriber's declared interest.
type Scope string

const (
	ScopeUsers Scope = "users"
	ScopeAll   Scope = "all"
)

// Listener receives the full resolved record set on every change.
type Listener func(change Change, expenses []core.Expense, incomes []core.Income)

// Subscription is an explicit handle; callers must Unsubscribe on teardown.
// There is no weak-reference cleanup.
type Subscription struct {
	id    string
	scope Scope
	fn    Listener
}

// ID returns the handle's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Registry fans data-change events out to subscribers and keeps the last
// delivered snapshot so new subscribers see current state immediately.
type Registry struct {
	mu       sync.Mutex
	subs     map[string]*Subscription
	expenses []core.Expense
	incomes  []core.Income
}

func New() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Subscribe registers fn under the given scope and immediately delivers the
// current cached snapshot (possibly empty) to it.
func (r *Registry) Subscribe(scope Scope, fn Listener) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		scope: scope,
		fn:    fn,
	}

	r.mu.Lock()
	r.subs[sub.id] = sub
	expenses := copyExpenses(r.expenses)
	incomes := copyIncomes(r.incomes)
	r.mu.Unlock()

	if matches(scope) {
		fn(ChangeUpdate, expenses, incomes)
	}
	return sub
}

// Unsubscribe removes the handle. Unknown handles are a no-op.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	delete(r.subs, sub.id)
	r.mu.Unlock()
}

// Notify caches the record set and delivers it synchronously, on the
// caller's goroutine, to every subscriber whose scope matches. No ordering
// among subscribers is guaranteed.
func (r *Registry) Notify(change Change, expenses []core.Expense, incomes []core.Income) {
	r.mu.Lock()
	r.expenses = copyExpenses(expenses)
	r.incomes = copyIncomes(incomes)
	targets := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if matches(sub.scope) {
			targets = append(targets, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range targets {
		sub.fn(change, copyExpenses(expenses), copyIncomes(incomes))
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// User-data changes go to subscribers interested in users or in everything.
func matches(scope Scope) bool {
	return scope == ScopeUsers || scope == ScopeAll
}

func copyExpenses(in []core.Expense) []core.Expense {
	out := make([]core.Expense, len(in))
	copy(out, in)
	return out
}

func copyIncomes(in []core.Income) []core.Income {
	out := make([]core.Income, len(in))
	copy(out, in)
	return out
}
