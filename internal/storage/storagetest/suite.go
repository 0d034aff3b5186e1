// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("AddAndList", func(t *testing.T) { testAddAndList(t, newStore(t)) })
	t.Run("ListIsScopedToOwner", func(t *testing.T) { testListScoped(t, newStore(t)) })
	t.Run("UpdateAndGet", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("RejectsInvalidExpense", func(t *testing.T) { testInvalid(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func expense(user, category, amount, date string) core.Expense {
	return core.Expense{
		UserID:      user,
		Category:    category,
		Amount:      decimal.RequireFromString(amount),
		Date:        core.DateString(date),
		Description: category + " on " + date,
	}
}

func testAddAndList(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.AddExpense(ctx, expense("u1", "Food", "12.50", "2024-01-02"))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	b, err := s.AddExpense(ctx, expense("u1", "Transport", "3", "2024-01-05"))
	require.NoError(t, err)
	c, err := s.AddExpense(ctx, expense("u1", "Bills", "0.10", "2024-01-02"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := s.ListExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{b.ID, a.ID, c.ID}, ids(list), "newest first, same day in insertion order")
	assert.True(t, list[1].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "2024-01-02", list[1].Date.String())
	assert.Equal(t, "Food on 2024-01-02", list[1].Description)
}

func testListScoped(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.AddExpense(ctx, expense("u1", "Food", "1", "2024-01-01"))
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, expense("u2", "Food", "2", "2024-01-01"))
	require.NoError(t, err)

	list, err := s.ListExpenses(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].UserID)

	empty, err := s.ListExpenses(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testUpdate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e, err := s.AddExpense(ctx, expense("u1", "Food", "1", "2024-01-01"))
	require.NoError(t, err)

	e.Amount = decimal.RequireFromString("99.99")
	e.Category = "Health"
	e.Date = core.DateOf(time.Date(2024, 2, 3, 15, 0, 0, 0, time.UTC))
	require.NoError(t, s.UpdateExpense(ctx, e))

	got, err := s.GetExpense(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Health", got.Category)
	assert.Equal(t, "2024-02-03", got.Date.String())
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("99.99")))

	other := e
	other.UserID = "u2"
	assert.ErrorIs(t, s.UpdateExpense(ctx, other), storage.ErrForbidden)

	missing := e
	missing.ID = "does-not-exist"
	assert.ErrorIs(t, s.UpdateExpense(ctx, missing), storage.ErrNotFound)

	_, err = s.GetExpense(ctx, "u2", e.ID)
	assert.ErrorIs(t, err, storage.ErrForbidden)
	_, err = s.GetExpense(ctx, "u1", "does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e, err := s.AddExpense(ctx, expense("u1", "Food", "1", "2024-01-01"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteExpense(ctx, "u2", e.ID), storage.ErrForbidden)
	require.NoError(t, s.DeleteExpense(ctx, "u1", e.ID))
	assert.ErrorIs(t, s.DeleteExpense(ctx, "u1", e.ID), storage.ErrNotFound)

	list, err := s.ListExpenses(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testInvalid(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.AddExpense(ctx, expense("", "Food", "1", "2024-01-01"))
	assert.ErrorIs(t, err, core.ErrMissingOwner)
	_, err = s.AddExpense(ctx, expense("u1", "Food", "-1", "2024-01-01"))
	assert.ErrorIs(t, err, core.ErrNegativeAmount)
	_, err = s.AddExpense(ctx, expense("u1", "Food", "1", "yesterday"))
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := core.User{
		ID:           core.EmailUserID("ann@example.com"),
		Email:        "Ann@Example.com",
		DisplayName:  "ann",
		PasswordHash: "hash",
		Provider:     core.ProviderPassword,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, u), storage.ErrUserExists)

	dup := u
	dup.ID = "another-id"
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrUserExists, "email must be unique")

	got, err := s.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.DisplayName)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, core.User{ID: "demo-1", Provider: core.ProviderDemo}))
	require.NoError(t, s.CreateUser(ctx, core.User{ID: "demo-2", Provider: core.ProviderDemo}), "users without email do not collide")
}

func ids(items []core.Expense) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
