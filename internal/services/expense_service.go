// Package services coordinates storage writes with the expense event stream.
package services

import (
	"context"
	"fmt"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// EventPublisher announces expense changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev amqp.ExpenseEvent) error
}

// ExpenseService validates and persists expenses, then publishes a change
// event. A failed publish is logged and never fails the write.
type ExpenseService struct {
	store     storage.ExpenseStore
	publisher EventPublisher
	logger    *log.StructuredLogger
}

// NewExpenseService wires store and an optional publisher (nil disables events).
func NewExpenseService(store storage.ExpenseStore, publisher EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentExpense)),
	}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.logger.LogExpenseChange(ctx, log.OpCreate, saved.UserID, saved.ID, saved.Category, core.FormatAmount(saved.Amount))
	s.publish(ctx, amqp.EventExpenseCreated, saved.ID, saved.UserID)
	return saved, nil
}

// Update replaces an expense the user owns.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.logger.LogExpenseChange(ctx, log.OpUpdate, e.UserID, e.ID, e.Category, core.FormatAmount(e.Amount))
	s.publish(ctx, amqp.EventExpenseUpdated, e.ID, e.UserID)
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.LogExpenseChange(ctx, log.OpDelete, userID, id, "", "")
	s.publish(ctx, amqp.EventExpenseDeleted, id, userID)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// List returns all of the user's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, userID string) ([]core.Expense, error) {
	items, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

// Recent returns at most n of the user's newest expenses.
func (s *ExpenseService) Recent(ctx context.Context, userID string, n int) ([]core.Expense, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, expenseID, userID string) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExpenseEvent(t, expenseID, userID)
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		s.logger.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(userID).WithExpense(expenseID, "", ""))
		return
	}
	s.logger.LogEventQueued(ctx, string(t), userID, expenseID)
}
