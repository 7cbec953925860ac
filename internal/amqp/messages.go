package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionEvent announces a ledger mutation. It carries only the id; the
// worker reads current state from the store.
type TransactionEvent struct {
	EventID   string    `json:"event_id"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(action string, id int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:   uuid.NewString(),
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and rejects ones without an action.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Action == "" {
		return nil, fmt.Errorf("event %q has no action", e.EventID)
	}
	return &e, nil
}
