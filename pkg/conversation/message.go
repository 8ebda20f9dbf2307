package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ErrorText is the text of the synthetic model message appended when an
// exchange with the model fails.
const ErrorText = "Error connecting to MicrosurgeryGPT. Please check your API key or connection."

// Message is a single entry in the conversation log. Messages are values and
// are never modified after creation.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsError   bool   `json:"isError,omitempty"`
}

type MessageOption func(*Message)

func WithID(id string) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Timestamp = t.UnixMilli()
	}
}

func WithError() MessageOption {
	return func(m *Message) {
		m.IsError = true
	}
}

func NewMessage(role Role, text string, options ...MessageOption) Message {
	ret := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, o := range options {
		o(&ret)
	}
	return ret
}

func NewUserMessage(text string, options ...MessageOption) Message {
	return NewMessage(RoleUser, text, options...)
}

func NewModelMessage(text string, options ...MessageOption) Message {
	return NewMessage(RoleModel, text, options...)
}

// NewErrorMessage returns a model-role message flagged as an error.
func NewErrorMessage(options ...MessageOption) Message {
	return NewMessage(RoleModel, ErrorText, append(options, WithError())...)
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

func (m Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

// IsBlank reports whether text would be rejected as user input.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
