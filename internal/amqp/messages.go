package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// EventType names what happened to an expense.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (t EventType) valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ExpenseSnapshot is the expense as carried on the wire. Amount stays a
// decimal string so consumers see the stored value exactly.
type ExpenseSnapshot struct {
	Title       string   `json:"title"`
	Amount      string   `json:"amount"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ExpenseEvent is published after every successful write. For deletions
// Expense holds the record as it was before removal.
type ExpenseEvent struct {
	Type      EventType        `json:"type"`
	ExpenseID string           `json:"expenseId"`
	Expense   *ExpenseSnapshot `json:"expense,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewExpenseEvent snapshots e for the given event type.
func NewExpenseEvent(typ EventType, e core.Expense) *ExpenseEvent {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ExpenseEvent{
		Type:      typ,
		ExpenseID: e.ID,
		Expense: &ExpenseSnapshot{
			Title:       e.Title,
			Amount:      e.Amount.String(),
			Category:    string(e.Category),
			Date:        e.Date.Format(core.DateLayout),
			Description: e.Description,
			Tags:        tags,
		},
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.valid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ExpenseID == "" {
		return nil, fmt.Errorf("event without expense id")
	}
	return &ev, nil
}
