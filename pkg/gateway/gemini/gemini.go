package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

var _ gateway.ChatFactory = &Factory{}

// Factory creates Gemini chat sessions through google.golang.org/genai.
type Factory struct {
	BaseURL    string
	HTTPClient *http.Client
}

type FactoryOption func(*Factory)

func WithBaseURL(baseURL string) FactoryOption {
	return func(f *Factory) {
		f.BaseURL = baseURL
	}
}

func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		f.HTTPClient = c
	}
}

func NewFactory(options ...FactoryOption) *Factory {
	ret := &Factory{}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func IsGeminiModel(model string) bool {
	return strings.HasPrefix(model, "gemini")
}

func (f *Factory) makeClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if f.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: f.BaseURL}
	}
	if f.HTTPClient != nil {
		cfg.HTTPClient = f.HTTPClient
	}
	return genai.NewClient(ctx, cfg)
}

// generateConfig maps a persona onto the generation config every turn of the
// chat is sent with.
func generateConfig(p *persona.Settings) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(p.Temperature)),
	}
}

func (f *Factory) NewChat(ctx context.Context, apiKey string, p *persona.Settings) (gateway.Chat, error) {
	if p == nil {
		return nil, errors.New("no persona specified")
	}
	if !IsGeminiModel(p.Model) {
		log.Warn().Str("model", p.Model).Msg("model does not look like a gemini model")
	}

	client, err := f.makeClient(ctx, apiKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	chat, err := client.Chats.Create(ctx, p.Model, generateConfig(p), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini chat")
	}
	return &Chat{chat: chat, model: p.Model}, nil
}

// Chat is a gateway.Chat backed by a genai chat session, which keeps the
// conversation history on the client side and resends it with every turn.
type Chat struct {
	chat  *genai.Chat
	model string
}

func (c *Chat) SendMessage(ctx context.Context, text string) (string, error) {
	log.Debug().Str("model", c.model).Int("prompt_len", len(text)).Msg("sending message to gemini")
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	if resp.UsageMetadata != nil {
		log.Debug().
			Str("model", c.model).
			Int32("input_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount).
			Msg("gemini usage")
	}
	return resp.Text(), nil
}
