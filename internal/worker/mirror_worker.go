// Package worker applies expense events to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/sheets"
	"spendwise/internal/storage"
)

const (
	versionCacheSize = 10000
	versionCacheTTL  = 24 * time.Hour
)

// ExpenseGetter loads the current state of an expense.
type ExpenseGetter interface {
	GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
}

// MirrorWorker keeps a sheets.Mirror in step with storage. Events only carry
// IDs: the worker always mirrors what storage holds now, so redelivered or
// reordered events converge on the same rows.
type MirrorWorker struct {
	expenses ExpenseGetter
	mirror   sheets.Mirror
	versions *cache.LRUCache[int64]
	logger   *log.Logger
}

func NewMirrorWorker(expenses ExpenseGetter, mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		expenses: expenses,
		mirror:   mirror,
		versions: cache.NewLRUCache[int64](versionCacheSize, versionCacheTTL),
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// RegisterCaches hands the version cache to m for expiry sweeps.
func (w *MirrorWorker) RegisterCaches(m *cache.Manager) {
	m.Register("event_versions", w.versions)
}

// HandleEvent is an amqp.Handler. A returned error requeues the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.ExpenseEvent) error {
	if last, ok := w.versions.Get(ev.ExpenseID); ok && ev.Version < last {
		w.logger.DebugContext(ctx, "Skipping stale event",
			log.FieldExpenseID, ev.ExpenseID,
			log.FieldEventType, ev.Type,
			"version", ev.Version,
			"last_version", last)
		return nil
	}

	if err := w.apply(ctx, ev); err != nil {
		return err
	}
	w.versions.Set(ev.ExpenseID, ev.Version)

	w.logger.InfoContext(ctx, "Mirrored expense event",
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldUserID, ev.UserID,
		log.FieldEventType, ev.Type)
	return nil
}

func (w *MirrorWorker) apply(ctx context.Context, ev amqp.ExpenseEvent) error {
	if ev.Type == amqp.EventExpenseDeleted {
		return w.remove(ctx, ev.ExpenseID)
	}

	e, err := w.expenses.GetExpense(ctx, ev.UserID, ev.ExpenseID)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrForbidden):
		// Deleted (or never ours) by the time the event arrived.
		return w.remove(ctx, ev.ExpenseID)
	case err != nil:
		return fmt.Errorf("load expense %s: %w", ev.ExpenseID, err)
	}

	if err := w.mirror.Upsert(ctx, e); err != nil {
		return fmt.Errorf("mirror expense %s: %w", ev.ExpenseID, err)
	}
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, id string) error {
	if err := w.mirror.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove mirrored expense %s: %w", id, err)
	}
	return nil
}
