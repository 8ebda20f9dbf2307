package events

import (
	"encoding/json"

	"github.com/go-go-golems/microsurgery-gpt/pkg/conversation"
	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypeMessageAppended EventType = "message-appended"
	EventTypeBusyChanged     EventType = "busy-changed"
	EventTypeConfigured      EventType = "configured"
)

// Event is published for every state change of a session.
type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"sessionId"`
	Message   *conversation.Message `json:"message,omitempty"`
	Busy      bool                  `json:"busy,omitempty"`
	Model     string                `json:"model,omitempty"`
}

func NewMessageAppendedEvent(sessionID string, msg conversation.Message) *Event {
	return &Event{Type: EventTypeMessageAppended, SessionID: sessionID, Message: &msg}
}

func NewBusyChangedEvent(sessionID string, busy bool) *Event {
	return &Event{Type: EventTypeBusyChanged, SessionID: sessionID, Busy: busy}
}

func NewConfiguredEvent(sessionID string, model string) *Event {
	return &Event{Type: EventTypeConfigured, SessionID: sessionID, Model: model}
}

func NewEventFromJson(b []byte) (*Event, error) {
	e := &Event{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, errors.Wrap(err, "could not decode event")
	}
	switch e.Type {
	case EventTypeMessageAppended:
		if e.Message == nil {
			return nil, errors.New("message-appended event without message")
		}
	case EventTypeBusyChanged, EventTypeConfigured:
	default:
		return nil, errors.Errorf("unknown event type %q", e.Type)
	}
	return e, nil
}
