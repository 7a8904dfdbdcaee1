package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Money is an amount in cents. Savings can be negative, so the sign is
	// unconstrained here; record validation enforces positive entry amounts.
	Money struct {
		Cents int64
	}

	// Expense is a single spending record. Category is a free-form string;
	// the picker list offered to clients is not enforced on write.
	Expense struct {
		ID       string
		Name     string
		Category string
		Amount   Money
		Date     time.Time
	}

	// Income is a single earning record.
	Income struct {
		ID     string
		Amount Money
		Date   time.Time
	}

	// User owns reference lists to its expense and income documents.
	// The referenced records live in their own collections.
	User struct {
		ID         string
		Email      string
		ExpenseIDs []string
		IncomeIDs  []string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty name")
)

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Validate checks that the amount is a positive, non-zero entry.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (in Income) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
