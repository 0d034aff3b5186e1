package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent announces a change to one expense. It carries ids only; the
// consumer reads the current state from storage.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ExpenseID string    `json:"expense_id"`
	UserID    string    `json:"user_id"`
	// Version orders events for the same expense. Later changes have larger versions.
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid expense event")

func NewExpenseEvent(t EventType, expenseID, userID string) ExpenseEvent {
	now := time.Now().UTC()
	return ExpenseEvent{
		Type:      t,
		ExpenseID: expenseID,
		UserID:    userID,
		Version:   now.UnixNano(),
		Timestamp: now,
	}
}

func (e ExpenseEvent) Validate() error {
	switch e.Type {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.ExpenseID == "" || e.UserID == "" {
		return fmt.Errorf("%w: missing expense or user id", ErrInvalidEvent)
	}
	return nil
}

func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates a message body.
func ExpenseEventFromJSON(data []byte) (ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ExpenseEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return ExpenseEvent{}, err
	}
	return ev, nil
}
