package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionEvent(t *testing.T) {
	evt := NewTransactionEvent(42, "u1", "expense")

	if evt.TransactionID != 42 || evt.UserID != "u1" || evt.Kind != "expense" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("Timestamp should not be zero")
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Fatal("Timestamp should be recent")
	}
}

func TestTransactionEvent_JSON(t *testing.T) {
	timestamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := &TransactionEvent{
		TransactionID: 42,
		UserID:        "u1",
		Kind:          "income",
		Timestamp:     timestamp,
	}

	jsonBytes, err := evt.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TransactionEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON() error = %v", err)
	}

	if parsed.TransactionID != evt.TransactionID || parsed.UserID != evt.UserID || parsed.Kind != evt.Kind {
		t.Fatalf("parsed event mismatch: %+v", parsed)
	}
	if !parsed.Timestamp.Equal(evt.Timestamp) {
		t.Fatalf("parsed timestamp = %v, want %v", parsed.Timestamp, evt.Timestamp)
	}
}

func TestTransactionEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"transaction_id": "not_a_number"}`)

	if _, err := TransactionEventFromJSON(invalidJSON); err == nil {
		t.Fatal("TransactionEventFromJSON() should fail with invalid JSON")
	}
}
