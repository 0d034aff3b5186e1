// Package storage defines the persistence ports used by the application and
// the errors every backend reports.
package storage

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("expense belongs to another user")
	ErrUserExists = errors.New("user already exists")
)

// Ports for persistence backends.
type (
	// ExpenseStore persists expenses. Every operation is scoped to one owner.
	ExpenseStore interface {
		// ListExpenses returns the user's expenses, newest date first. Expenses on
		// the same date keep insertion order.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		// AddExpense stores e and returns it with its assigned ID.
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, userID, id string) error
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	// Store is what a data backend provides.
	Store interface {
		ExpenseStore
		UserStore
	}
)
