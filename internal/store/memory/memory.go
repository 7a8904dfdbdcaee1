// Package memory implements the document store in process memory. The
// default backend for local development and the fixture for gateway and
// HTTP tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/store"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]userRecord
	expenses map[string]core.Expense
	incomes  map[string]core.Income
	watchers map[string][]chan struct{}
}

type userRecord struct {
	user         core.User
	passwordHash string
}

func New() *Store {
	return &Store{
		users:    make(map[string]userRecord),
		expenses: make(map[string]core.Expense),
		incomes:  make(map[string]core.Income),
		watchers: make(map[string][]chan struct{}),
	}
}

func (s *Store) NewID() string {
	return uuid.NewString()
}

func (s *Store) InsertUser(_ context.Context, u core.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ExpenseIDs = append([]string(nil), u.ExpenseIDs...)
	u.IncomeIDs = append([]string(nil), u.IncomeIDs...)
	s.users[u.ID] = userRecord{user: u, passwordHash: passwordHash}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return copyUser(rec.user), nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.Email == email {
			return copyUser(rec.user), rec.passwordHash, nil
		}
	}
	return core.User{}, "", store.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) InsertIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes[in.ID] = in
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetIncome(_ context.Context, id string) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.incomes[id]
	if !ok {
		return core.Income{}, store.ErrNotFound
	}
	return in, nil
}

func (s *Store) AppendExpenseRef(ctx context.Context, userID, expenseID string) error {
	return s.appendRef(userID, expenseID, false)
}

func (s *Store) AppendIncomeRef(ctx context.Context, userID, incomeID string) error {
	return s.appendRef(userID, incomeID, true)
}

func (s *Store) appendRef(userID, recordID string, income bool) error {
	s.mu.Lock()
	rec, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if income {
		rec.user.IncomeIDs = appendUnique(rec.user.IncomeIDs, recordID)
	} else {
		rec.user.ExpenseIDs = appendUnique(rec.user.ExpenseIDs, recordID)
	}
	s.users[userID] = rec
	watchers := append([]chan struct{}(nil), s.watchers[userID]...)
	s.mu.Unlock()

	// Mirror the change-stream behavior: every user-document mutation
	// wakes the watchers.
	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// WatchUser delivers a tick for every mutation of the user document until
// ctx is done.
func (s *Store) WatchUser(ctx context.Context, userID string, onChange func()) error {
	ch := make(chan struct{}, 16)

	s.mu.Lock()
	s.watchers[userID] = append(s.watchers[userID], ch)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		list := s.watchers[userID]
		for i, c := range list {
			if c == ch {
				s.watchers[userID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			onChange()
		}
	}
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func copyUser(u core.User) core.User {
	u.ExpenseIDs = append([]string(nil), u.ExpenseIDs...)
	u.IncomeIDs = append([]string(nil), u.IncomeIDs...)
	return u
}
