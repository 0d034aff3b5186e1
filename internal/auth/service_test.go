package auth

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	svc := NewService(store, services.NewExpenseService(store, nil, logger), logger)
	svc.hashCost = bcrypt.MinCost
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.Register(ctx, "Ada@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "email-user-ada-example-com", u.ID)
	assert.Equal(t, "ada", u.DisplayName)
	assert.NotEqual(t, "secret", u.PasswordHash)

	_, err = svc.Register(ctx, "ada@example.com", "other")
	assert.ErrorIs(t, err, storage.ErrUserExists)

	got, err := svc.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMissingCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = svc.Login(ctx, "a@b.c", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "  "), ErrMissingCredentials)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.Register(ctx, "ada@example.com", strings.Repeat("€", 30))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	_, err = store.GetUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Register(ctx, "ada@example.com", strings.Repeat("p", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestResetPasswordDoesNotRevealAccounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Register(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	assert.NoError(t, svc.ResetPassword(ctx, "ada@example.com"))
	assert.NoError(t, svc.ResetPassword(ctx, "ghost@example.com"))
}

func TestDemoLoginSeedsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	u, err := svc.DemoLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, DemoUserID, u.ID)
	assert.Equal(t, core.ProviderDemo, u.Provider)

	items, err := store.ListExpenses(ctx, DemoUserID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Food", items[0].Category)
	assert.Equal(t, "25.99", core.FormatAmount(items[0].Amount))
	assert.Equal(t, "2024-05-09", items[0].Date.String())
	assert.Equal(t, "Grocery shopping", items[0].Description)
	assert.Equal(t, "Transport", items[1].Category)
	assert.Equal(t, "2024-05-08", items[1].Date.String())
	assert.Equal(t, "Entertainment", items[2].Category)
	assert.Equal(t, "9.99", core.FormatAmount(items[2].Amount))
	assert.Equal(t, "2024-05-07", items[2].Date.String())

	_, err = svc.DemoLogin(ctx)
	require.NoError(t, err)
	items, err = store.ListExpenses(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestDemoLoginConcurrentSeedsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DemoLogin(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := store.ListExpenses(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestLoginGoogle(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.LoginGoogle(ctx, GoogleUser{Sub: "g-1", Email: "g@example.com"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	u, err := svc.LoginGoogle(ctx, GoogleUser{Sub: "g-1", Email: "g@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, "g-1", u.ID)
	assert.Equal(t, "g", u.DisplayName)
	assert.Equal(t, core.ProviderGoogle, u.Provider)

	again, err := svc.LoginGoogle(ctx, GoogleUser{Sub: "g-1", Email: "g@example.com", EmailVerified: true, GivenName: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "g", again.DisplayName)

	stored, err := store.GetUser(ctx, "g-1")
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordHash)

	_, err = svc.Login(ctx, "g@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
