package amqp

import (
	"encoding/json"
	"time"
)

// Record kinds carried on event messages.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// RecordEventMessage announces a durably written expense or income record.
// It carries identifiers only; the worker fetches the full document from
// the store.
type RecordEventMessage struct {
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordEventMessage creates an event message stamped with the current time
func NewRecordEventMessage(kind, recordID, userID string) *RecordEventMessage {
	return &RecordEventMessage{
		Kind:      kind,
		RecordID:  recordID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventMessageFromJSON creates a message from JSON bytes
func RecordEventMessageFromJSON(data []byte) (*RecordEventMessage, error) {
	var msg RecordEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
