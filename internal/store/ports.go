// Package store defines the ports the gateway uses to reach the document
// database. Implementations live in the mongo and memory subpackages.
package store

import (
	"context"
	"errors"

	"tally/internal/core"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the document-database surface: three collections (users, expense,
// income), reference-array updates on the user document, and a per-user
// change subscription.
type Store interface {
	// NewID pre-allocates a document identifier, mirroring the backing
	// database's document-creation call.
	NewID() string

	InsertUser(ctx context.Context, u core.User, passwordHash string) error
	GetUser(ctx context.Context, id string) (core.User, error)
	// FindUserByEmail returns the user and its stored password hash.
	FindUserByEmail(ctx context.Context, email string) (core.User, string, error)
	DeleteUser(ctx context.Context, id string) error

	InsertExpense(ctx context.Context, e core.Expense) error
	InsertIncome(ctx context.Context, in core.Income) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)

	AppendExpenseRef(ctx context.Context, userID, expenseID string) error
	AppendIncomeRef(ctx context.Context, userID, incomeID string) error

	// WatchUser blocks, invoking onChange every time the user document
	// mutates, until ctx is done or the subscription fails.
	WatchUser(ctx context.Context, userID string, onChange func()) error
}
