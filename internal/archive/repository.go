// Package archive maintains a local SQLite replica of written records.
// The worker feeds it from record events; it answers per-user reporting
// reads without touching the primary store.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations brings the schema up to date from the embedded migration
// files, on its own connection so the repository handle stays clean.
func runMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveExpense upserts the expense under its pre-allocated identifier.
// Redelivered events overwrite with identical data, so replication stays
// idempotent.
func (r *SQLiteRepository) SaveExpense(ctx context.Context, userID string, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO archived_expenses (id, user_id, name, category, amount_cents, date_unix, archived_at_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			category = excluded.category,
			amount_cents = excluded.amount_cents,
			date_unix = excluded.date_unix`,
		e.ID, userID, e.Name, e.Category, e.Amount.Cents, e.Date.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense archived",
		"id", e.ID,
		"user_id", userID,
		"amount_cents", e.Amount.Cents)
	return nil
}

// SaveIncome is the income counterpart of SaveExpense.
func (r *SQLiteRepository) SaveIncome(ctx context.Context, userID string, in core.Income) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO archived_incomes (id, user_id, amount_cents, date_unix, archived_at_unix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			amount_cents = excluded.amount_cents,
			date_unix = excluded.date_unix`,
		in.ID, userID, in.Amount.Cents, in.Date.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save income: %w", err)
	}

	slog.InfoContext(ctx, "Income archived",
		"id", in.ID,
		"user_id", userID,
		"amount_cents", in.Amount.Cents)
	return nil
}

// ListExpenses returns the user's archived expenses, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, amount_cents, date_unix
		FROM archived_expenses
		WHERE user_id = ?
		ORDER BY date_unix DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var dateUnix int64
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Amount.Cents, &dateUnix); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = time.Unix(dateUnix, 0).UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// ListIncomes returns the user's archived incomes, newest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, date_unix
		FROM archived_incomes
		WHERE user_id = ?
		ORDER BY date_unix DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var in core.Income
		var dateUnix int64
		if err := rows.Scan(&in.ID, &in.Amount.Cents, &dateUnix); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Date = time.Unix(dateUnix, 0).UTC()
		incomes = append(incomes, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomes: %w", err)
	}
	return incomes, nil
}
