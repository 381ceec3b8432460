package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// LedgerEvent announces a committed change to one user's ledger.
// It carries identifiers only; consumers reload the ledger themselves.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, userID, transactionID string, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		Type:          typ,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     at.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.UserID == "" {
		return nil, errors.New("event without userId")
	}
	return &e, nil
}
