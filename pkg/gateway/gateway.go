package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/rs/zerolog/log"
)

// Chat is a stateful exchange with the external model. Prior turns are kept by
// the implementation and sent as context with every new message.
type Chat interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

// ChatFactory creates a new Chat for an API key and persona.
type ChatFactory interface {
	NewChat(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error)
}

type ChatFactoryFunc func(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error)

func (f ChatFactoryFunc) NewChat(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error) {
	return f(ctx, apiKey, p)
}

// Gateway owns the single active conversation handle of a session and
// mediates all text exchange with the model.
type Gateway struct {
	factory ChatFactory
	persona *persona.Settings

	mu     sync.Mutex
	apiKey string
	handle Chat
}

type Option func(*Gateway)

func WithPersona(p *persona.Settings) Option {
	return func(g *Gateway) {
		if p != nil {
			g.persona = p.Clone()
		}
	}
}

// New creates an unconfigured gateway. Without WithPersona the built-in
// persona is used.
func New(factory ChatFactory, options ...Option) *Gateway {
	g := &Gateway{factory: factory}
	for _, o := range options {
		o(g)
	}
	if g.persona == nil {
		g.persona = persona.Default()
	}
	return g
}

// Persona returns a copy of the persona the gateway creates handles with.
func (g *Gateway) Persona() *persona.Settings {
	return g.persona.Clone()
}

func (g *Gateway) IsConfigured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle != nil
}

// Configure creates a new conversation handle for apiKey and replaces the
// previous one. Configuring again with the current key keeps the existing
// handle and its conversation context.
func (g *Gateway) Configure(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyAPIKey
	}
	if g.factory == nil {
		return ErrNoFactory
	}

	g.mu.Lock()
	if g.handle != nil && g.apiKey == apiKey {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	handle, err := g.factory.NewChat(ctx, apiKey, g.persona.Clone())
	if err != nil {
		return &GatewayError{Op: "configure", Err: err}
	}

	g.mu.Lock()
	replaced := g.handle != nil
	g.apiKey = apiKey
	g.handle = handle
	g.mu.Unlock()

	log.Debug().
		Str("model", g.persona.Model).
		Float64("temperature", g.persona.Temperature).
		Bool("replaced", replaced).
		Msg("model gateway configured")
	return nil
}

// Send forwards text on the current handle and returns the model's reply, or
// "" when the model returned no content.
func (g *Gateway) Send(ctx context.Context, text string) (string, error) {
	g.mu.Lock()
	handle := g.handle
	g.mu.Unlock()
	if handle == nil {
		return "", ErrNotConfigured
	}

	reply, err := handle.SendMessage(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("model", g.persona.Model).Msg("model interaction failed")
		return "", &GatewayError{Op: "send", Err: err}
	}
	return reply, nil
}
