package amqp

import (
	"encoding/json"
	"time"
)

// TransactionChangedMessage tells the materialization worker that a user's
// transaction set changed. It carries only the user id: the worker loads a
// fresh snapshot itself, so a stale or duplicated message is harmless.
type TransactionChangedMessage struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionChangedMessage(userID string) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangedMessageFromJSON creates a message from JSON bytes
func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
