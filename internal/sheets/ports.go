// Package sheets defines the off-site spreadsheet mirror of user expenses.
package sheets

import (
	"context"

	"spendwise/internal/core"
)

// Mirror keeps one spreadsheet row per expense, keyed by expense ID.
type Mirror interface {
	// Upsert writes e, replacing the row with the same ID if present.
	Upsert(ctx context.Context, e core.Expense) error
	// Remove deletes the row for id. Removing a missing row is not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the column layout of the mirror sheet.
var Header = []string{"ID", "User", "Date", "Category", "Amount", "Description", "Mirrored At"}
