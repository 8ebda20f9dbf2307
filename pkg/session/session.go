package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/microsurgery-gpt/pkg/conversation"
	"github.com/go-go-golems/microsurgery-gpt/pkg/events"
	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNil         = errors.New("session is nil")
	ErrSessionNoGateway   = errors.New("session has no model gateway")
	ErrSessionBusy        = errors.New("session already has an outstanding send")
	ErrExecutionHandleNil = errors.New("execution handle is nil")
)

// Session is a single conversation with the model.
//
// It owns:
// - a stable SessionID
// - the append-only message log and the busy/configured flags
// - the model gateway and its conversation handle
// - the rule that only one send is outstanding at a time
//
// Failures of the model are never returned from Send: they are recorded in the
// log as a model message flagged as an error.
type Session struct {
	SessionID string

	store     *conversation.Store
	gateway   *gateway.Gateway
	publisher *events.PublisherManager
	now       func() time.Time

	mu      sync.Mutex
	sending bool
}

type Option func(*Session) error

func WithPublisherManager(pm *events.PublisherManager) Option {
	return func(s *Session) error {
		s.publisher = pm
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		s.now = now
		return nil
	}
}

func WithSessionID(id string) Option {
	return func(s *Session) error {
		if id == "" {
			return errors.New("session id is empty")
		}
		s.SessionID = id
		return nil
	}
}

// NewSession creates an unconfigured session around gw.
func NewSession(gw *gateway.Gateway, options ...Option) (*Session, error) {
	if gw == nil {
		return nil, ErrSessionNoGateway
	}
	s := &Session{
		SessionID: uuid.NewString(),
		store:     conversation.NewStore(),
		gateway:   gw,
		publisher: events.NewPublisherManager(),
		now:       time.Now,
	}
	for _, o := range options {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.store.SetConfigured(gw.IsConfigured())
	return s, nil
}

func (s *Session) Messages() []conversation.Message {
	return s.store.Messages()
}

func (s *Session) Snapshot() conversation.Snapshot {
	return s.store.Snapshot()
}

func (s *Session) IsBusy() bool {
	return s.store.Busy()
}

func (s *Session) IsConfigured() bool {
	return s.store.Configured()
}

func (s *Session) Persona() *persona.Settings {
	return s.gateway.Persona()
}

// Configure installs a new conversation handle for apiKey. It is rejected
// while a send is outstanding.
func (s *Session) Configure(ctx context.Context, apiKey string) error {
	if s == nil {
		return ErrSessionNil
	}
	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	err := s.gateway.Configure(ctx, apiKey)
	if err == nil {
		s.store.SetConfigured(true)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publisher.PublishBlind(events.NewConfiguredEvent(s.SessionID, s.gateway.Persona().Model))
	log.Info().Str("session_id", s.SessionID).Msg("session configured")
	return nil
}

// Send appends text as a user message, forwards it to the model and appends
// the reply. Blank text is ignored and returns nil, nil.
//
// The returned message is the model's reply, or the error-flagged message
// appended in its place when the exchange failed.
func (s *Session) Send(ctx context.Context, text string) (*conversation.Message, error) {
	if s == nil {
		return nil, ErrSessionNil
	}
	_, ok, err := s.begin(text)
	if err != nil || !ok {
		return nil, err
	}
	reply := s.exchange(ctx, text)
	return &reply, nil
}

// SendAsync performs the same checks as Send and then runs the exchange in a
// goroutine. For blank text the returned handle is already complete.
func (s *Session) SendAsync(ctx context.Context, text string) (*ExecutionHandle, error) {
	if s == nil {
		return nil, ErrSessionNil
	}
	input, ok, err := s.begin(text)
	if err != nil {
		return nil, err
	}
	if !ok {
		h := newExecutionHandle(s.SessionID, nil)
		h.setResult(nil, nil)
		return h, nil
	}

	h := newExecutionHandle(s.SessionID, &input)
	go func() {
		reply := s.exchange(ctx, text)
		h.setResult(&reply, nil)
	}()
	return h, nil
}

// begin validates a send and records the user message. ok is false when text
// is blank and nothing was recorded.
func (s *Session) begin(text string) (conversation.Message, bool, error) {
	if conversation.IsBlank(text) {
		return conversation.Message{}, false, nil
	}

	s.mu.Lock()
	if !s.gateway.IsConfigured() {
		s.mu.Unlock()
		return conversation.Message{}, false, gateway.ErrNotConfigured
	}
	if s.sending {
		s.mu.Unlock()
		return conversation.Message{}, false, ErrSessionBusy
	}
	s.sending = true
	s.mu.Unlock()

	msg := conversation.NewUserMessage(text, conversation.WithTime(s.now()))
	s.store.Append(msg)
	s.publisher.PublishBlind(events.NewMessageAppendedEvent(s.SessionID, msg))
	s.store.SetBusy(true)
	s.publisher.PublishBlind(events.NewBusyChangedEvent(s.SessionID, true))
	return msg, true, nil
}

func (s *Session) exchange(ctx context.Context, text string) conversation.Message {
	defer s.finish()

	start := s.now()
	reply, err := s.gateway.Send(ctx, text)

	var msg conversation.Message
	if err != nil {
		log.Error().Err(err).Str("session_id", s.SessionID).Msg("send failed")
		msg = conversation.NewErrorMessage(conversation.WithTime(s.now()))
	} else {
		msg = conversation.NewModelMessage(reply, conversation.WithTime(s.now()))
		log.Debug().
			Str("session_id", s.SessionID).
			Dur("elapsed", s.now().Sub(start)).
			Int("reply_len", len(reply)).
			Msg("received reply")
	}
	s.store.Append(msg)
	s.publisher.PublishBlind(events.NewMessageAppendedEvent(s.SessionID, msg))
	return msg
}

func (s *Session) finish() {
	s.store.SetBusy(false)
	s.mu.Lock()
	s.sending = false
	s.mu.Unlock()
	s.publisher.PublishBlind(events.NewBusyChangedEvent(s.SessionID, false))
}
