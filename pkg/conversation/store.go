package conversation

import (
	"sync"
)

// Snapshot is a point-in-time copy of the store state, suitable for rendering.
type Snapshot struct {
	Messages   []Message `json:"messages"`
	Busy       bool      `json:"busy"`
	Configured bool      `json:"configured"`
}

// Store holds the ordered message log of a single conversation together with
// the busy and configured flags read by the presentation layer.
//
// The log is append-only: messages are kept in arrival order and never
// modified or removed. All accessors return copies.
type Store struct {
	mu         sync.RWMutex
	messages   []Message
	busy       bool
	configured bool
}

func NewStore() *Store {
	return &Store{}
}

// Append adds msg to the end of the log.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// AppendUserText appends a user message for text and returns it. Blank text is
// ignored and reported with ok == false.
func (s *Store) AppendUserText(text string, options ...MessageOption) (Message, bool) {
	if IsBlank(text) {
		return Message{}, false
	}
	msg := NewUserMessage(text, options...)
	s.Append(msg)
	return msg, true
}

func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]Message, len(s.messages))
	copy(ret, s.messages)
	return ret
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recently appended message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

func (s *Store) SetBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

func (s *Store) SetConfigured(configured bool) {
	s.mu.Lock()
	s.configured = configured
	s.mu.Unlock()
}

func (s *Store) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		Messages:   msgs,
		Busy:       s.busy,
		Configured: s.configured,
	}
}
