package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// Store keeps users and expenses in process memory. Data is lost on restart.
type Store struct {
	mu       sync.RWMutex
	expenses map[string]core.Expense
	order    []string // expense ids in insertion order
	users    map[string]core.User
	byEmail  map[string]string
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	slog.Warn("Using in-memory store, data will not survive a restart", "component", "storage")
	return &Store{
		expenses: make(map[string]core.Expense),
		users:    make(map[string]core.User),
		byEmail:  make(map[string]string),
	}
}

// ListExpenses returns the user's expenses newest first.
func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, id := range s.order {
		if e, ok := s.expenses[id]; ok && e.UserID == userID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// AddExpense stores the expense under a fresh id.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	s.expenses[e.ID] = e
	s.order = append(s.order, e.ID)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.UserID != e.UserID {
		return storage.ErrForbidden
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[id]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.UserID != userID {
		return storage.ErrForbidden
	}
	delete(s.expenses, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetExpense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	if e.UserID != userID {
		return core.Expense{}, storage.ErrForbidden
	}
	return e, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	email := normalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return storage.ErrUserExists
	}
	if email != "" {
		if _, ok := s.byEmail[email]; ok {
			return storage.ErrUserExists
		}
		s.byEmail[email] = u.ID
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sortNewestFirst orders by normalized date descending. Expenses with an
// unusable date go last. The sort is stable so same-day rows keep their order.
func sortNewestFirst(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		di, oki := items[i].Date.Normalize()
		dj, okj := items[j].Date.Normalize()
		if oki != okj {
			return oki
		}
		return di.After(dj.Time)
	})
}
