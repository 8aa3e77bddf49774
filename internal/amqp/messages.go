package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/core"
)

// ChangeKind says what happened to a group's history.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeSettled ChangeKind = "settled"
	ChangeDeleted ChangeKind = "deleted"
)

var ErrMalformedMessage = errors.New("malformed message")

// LedgerChangedMessage announces that a group's expense history changed.
// It carries identifiers only; consumers reload the history from storage.
type LedgerChangedMessage struct {
	GroupID   core.GroupID   `json:"groupId"`
	ExpenseID core.ExpenseID `json:"expenseId"`
	Kind      ChangeKind     `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewLedgerChangedMessage(groupID core.GroupID, expenseID core.ExpenseID, kind ChangeKind) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		GroupID:   groupID,
		ExpenseID: expenseID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) Validate() error {
	if m.GroupID == "" {
		return fmt.Errorf("%w: missing group id", ErrMalformedMessage)
	}
	switch m.Kind {
	case ChangeCreated, ChangeSettled, ChangeDeleted:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedMessage, m.Kind)
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
