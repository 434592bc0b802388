package bus

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ActionPrefix scopes message actions on the bus.
const ActionPrefix = "component:"

// Message is a component-to-component message. An empty Receiver means
// broadcast to every component except the sender.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver,omitempty"`
	Action    string    `json:"action"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh ULID and the current time.
func NewMessage(sender, receiver, action string, data any) Message {
	now := time.Now()
	return Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Sender:    sender,
		Receiver:  receiver,
		Action:    action,
		Data:      data,
		Timestamp: now,
	}
}

// Broadcast reports whether m has no specific receiver.
func (m Message) Broadcast() bool { return m.Receiver == "" }

// ActionEvent returns the bus event name for action.
func ActionEvent(action string) string { return ActionPrefix + action }
