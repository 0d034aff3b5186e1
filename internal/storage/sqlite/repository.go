// Package sqlite is the durable storage backend. Amounts and dates are stored
// as TEXT so decimal values survive the round trip exactly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/storage"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ storage.Store = (*Repository)(nil)

// NewRepository opens the database at dbPath, creating parent directories,
// and applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
		Description: e.Description,
		Now:         r.timestamp(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount", e.Amount.String())
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
		Description: e.Description,
		Now:         r.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return r.missOrForbidden(ctx, e.ID)
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return r.missOrForbidden(ctx, id)
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	if row.UserID != userID {
		return core.Expense{}, storage.ErrForbidden
	}
	return toExpense(row)
}

// missOrForbidden explains why a scoped write touched no rows.
func (r *Repository) missOrForbidden(ctx context.Context, id string) error {
	_, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get expense by id: %w", err)
	}
	return storage.ErrForbidden
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	email := normalizeEmail(u.Email)
	exists, err := r.queries.UserExists(ctx, u.ID, email)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists {
		return storage.ErrUserExists
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	err = r.queries.CreateUser(ctx, UserRow{
		ID:           u.ID,
		Email:        email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Provider:     u.Provider,
		CreatedAt:    created.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	return toUser(row, err)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, normalizeEmail(email))
	return toUser(row, err)
}

func toExpense(row ExpenseRow) (core.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: parse amount %q: %w", row.ID, row.Amount, err)
	}
	return core.Expense{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      amount,
		Category:    row.Category,
		Date:        core.DateString(row.Date),
		Description: row.Description,
	}, nil
}

func toUser(row UserRow, err error) (core.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("user %s: parse created_at %q: %w", row.ID, row.CreatedAt, err)
	}
	return core.User{
		ID:           row.ID,
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		PasswordHash: row.PasswordHash,
		Provider:     row.Provider,
		CreatedAt:    created,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
