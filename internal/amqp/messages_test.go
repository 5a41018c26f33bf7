package amqp

import (
	"testing"
	"time"
)

func TestTransactionChangedMessageRoundTrip(t *testing.T) {
	msg := NewTransactionChangedMessage("user-42")
	if msg.UserID != "user-42" {
		t.Errorf("user id = %q", msg.UserID)
	}
	if time.Since(msg.Timestamp) > time.Minute {
		t.Errorf("timestamp not set: %v", msg.Timestamp)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := TransactionChangedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.UserID != msg.UserID {
		t.Errorf("round trip user id = %q", got.UserID)
	}
}

func TestTransactionChangedMessageFromJSONInvalid(t *testing.T) {
	if _, err := TransactionChangedMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}
