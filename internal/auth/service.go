// Package auth handles accounts, sessions and Google sign-in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

var (
	ErrMissingCredentials = errors.New("missing authentication data")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified by Google")
	ErrPasswordTooLong    = errors.New("password longer than 72 bytes")
)

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

const (
	DemoUserID      = "demo-user-id"
	DemoEmail       = "demo@example.com"
	DemoDisplayName = "Demo User"
)

// ExpenseSeeder is what demo login needs to create sample expenses.
type ExpenseSeeder interface {
	Create(ctx context.Context, e core.Expense) (core.Expense, error)
	List(ctx context.Context, userID string) ([]core.Expense, error)
}

type Service struct {
	users    storage.UserStore
	expenses ExpenseSeeder
	logger   *log.Logger
	now      func() time.Time
	hashCost int

	// demoMu makes the demo account's check-then-seed atomic.
	demoMu sync.Mutex
}

func NewService(users storage.UserStore, expenses ExpenseSeeder, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		users:    users,
		expenses: expenses,
		logger:   logger.WithComponent(log.ComponentAuth),
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register creates a password account. The user id is derived from the email.
func (s *Service) Register(ctx context.Context, email, password string) (core.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return core.User{}, ErrMissingCredentials
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, storage.ErrUserExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if len(password) > MaxPasswordBytes {
		return core.User{}, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := core.User{
		ID:           core.EmailUserID(email),
		Email:        email,
		DisplayName:  core.DefaultDisplayName(email),
		PasswordHash: string(hash),
		Provider:     core.ProviderPassword,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldProvider, u.Provider)
	return u, nil
}

// Login checks a password against the stored hash. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return core.User{}, ErrMissingCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u.PasswordHash == "" {
		return core.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Password mismatch", log.FieldUserID, u.ID)
		return core.User{}, ErrInvalidCredentials
	}
	if u.DisplayName == "" {
		u.DisplayName = core.DefaultDisplayName(u.Email)
	}
	return u, nil
}

// DemoLogin returns the shared demo account and seeds three sample expenses
// dated one to three days ago when the account has none.
func (s *Service) DemoLogin(ctx context.Context) (core.User, error) {
	u := core.User{
		ID:          DemoUserID,
		Email:       DemoEmail,
		DisplayName: DemoDisplayName,
		Provider:    core.ProviderDemo,
		CreatedAt:   s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil && !errors.Is(err, storage.ErrUserExists) {
		return core.User{}, fmt.Errorf("create demo user: %w", err)
	}

	s.demoMu.Lock()
	defer s.demoMu.Unlock()

	existing, err := s.expenses.List(ctx, u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("list demo expenses: %w", err)
	}
	if len(existing) > 0 {
		return u, nil
	}

	for _, e := range demoExpenses(u.ID, s.now()) {
		if _, err := s.expenses.Create(ctx, e); err != nil {
			return core.User{}, fmt.Errorf("seed demo expense: %w", err)
		}
	}
	s.logger.InfoContext(ctx, "Demo expenses seeded", log.FieldUserID, u.ID, log.FieldCount, 3)
	return u, nil
}

func demoExpenses(userID string, now time.Time) []core.Expense {
	seed := []struct {
		category, amount, description string
		daysAgo                       int
	}{
		{core.CategoryFood, "25.99", "Grocery shopping", 1},
		{core.CategoryTransport, "45.00", "Gas", 2},
		{core.CategoryEntertainment, "9.99", "Movie ticket", 3},
	}
	out := make([]core.Expense, len(seed))
	for i, d := range seed {
		out[i] = core.Expense{
			UserID:      userID,
			Amount:      decimal.RequireFromString(d.amount),
			Category:    d.category,
			Date:        core.DateOf(now.AddDate(0, 0, -d.daysAgo)),
			Description: d.description,
		}
	}
	return out
}

// ResetPassword accepts a reset request. It never reveals whether the email
// belongs to an account.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingCredentials
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.ErrorContext(ctx, "Password reset lookup failed", log.FieldError, err)
	}
	s.logger.InfoContext(ctx, "Password reset requested")
	return nil
}

// LoginGoogle finds or creates the account behind a verified Google profile.
func (s *Service) LoginGoogle(ctx context.Context, gu GoogleUser) (core.User, error) {
	if !gu.EmailVerified {
		return core.User{}, ErrEmailNotVerified
	}
	if gu.Sub == "" {
		return core.User{}, ErrMissingCredentials
	}

	u, err := s.users.GetUser(ctx, gu.Sub)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	name := gu.GivenName
	if name == "" {
		name = core.DefaultDisplayName(gu.Email)
	}
	u = core.User{
		ID:          gu.Sub,
		Email:       gu.Email,
		DisplayName: name,
		Provider:    core.ProviderGoogle,
		CreatedAt:   s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldProvider, u.Provider)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
