package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent is the lightweight message published after a
// transaction write. Only the ID travels on the wire; the worker
// fetches the full row from the store.
type TransactionEvent struct {
	TransactionID int64     `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event stamped with the current time.
func NewTransactionEvent(transactionID int64, userID, kind string) *TransactionEvent {
	return &TransactionEvent{
		TransactionID: transactionID,
		UserID:        userID,
		Kind:          kind,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
