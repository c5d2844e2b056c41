package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

type EventType string

const (
	EventTransactionRecorded EventType = "transaction.recorded"
	EventBudgetCreated       EventType = "budget.created"
)

// Event is a lightweight notification: it carries identifiers and the keys a
// consumer needs to route the work, and the consumer loads the rest from the
// store.
type Event struct {
	ID            string        `json:"id"`
	Type          EventType     `json:"type"`
	UserID        int64         `json:"user_id"`
	AccountID     int64         `json:"account_id,omitempty"`
	TransactionID int64         `json:"transaction_id,omitempty"`
	BudgetID      int64         `json:"budget_id,omitempty"`
	Category      core.Category `json:"category,omitempty"`
	Month         string        `json:"month,omitempty"`
	AmountCents   int64         `json:"amount_cents,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewTransactionRecorded describes a transaction stored on one of userID's accounts.
func NewTransactionRecorded(userID int64, t core.Transaction) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          EventTransactionRecorded,
		UserID:        userID,
		AccountID:     t.AccountID,
		TransactionID: t.ID,
		Category:      t.Category,
		Month:         t.Date.YearMonth().String(),
		AmountCents:   t.Amount.Cents,
		Timestamp:     time.Now(),
	}
}

// NewBudgetCreated describes a newly stored budget.
func NewBudgetCreated(b core.Budget) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        EventBudgetCreated,
		UserID:      b.UserID,
		BudgetID:    b.ID,
		Category:    b.Category,
		Month:       b.Month.String(),
		AmountCents: b.Amount.Cents,
		Timestamp:   time.Now(),
	}
}

// YearMonth parses the event's month key.
func (e *Event) YearMonth() (core.YearMonth, error) {
	return core.ParseYearMonth(e.Month)
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and checks that it is routable.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventTransactionRecorded, EventBudgetCreated:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
