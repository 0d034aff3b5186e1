package memory

import (
	"context"
	"sync"

	"spendwise/internal/core"
	"spendwise/internal/sheets"
)

// Mirror is an in-process sheets.Mirror that keeps rows in insertion order.
type Mirror struct {
	mu   sync.Mutex
	ids  []string
	rows map[string]core.Expense
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[string]core.Expense)}
}

func (m *Mirror) Upsert(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		m.ids = append(m.ids, e.ID)
	}
	m.rows[e.ID] = e
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored expenses in sheet order.
func (m *Mirror) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.rows[id])
	}
	return out
}
