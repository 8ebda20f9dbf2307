package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-go-golems/microsurgery-gpt/internal/httpjson"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	Route           = "/api/callGemini"
	DefaultEndpoint = "https://api.generativeai.google.com/v1/models/text-bison-001:generate"

	DefaultMaxOutputTokens = 256
	DefaultTemperature     = 0.2

	maxResponseBytes = 10_000_000
)

// Config holds the server-side credential and upstream parameters. The proxy
// carries no session state: every request is forwarded on its own.
type Config struct {
	APIKey          string
	Endpoint        string
	MaxOutputTokens int
	Temperature     float64
}

// Handler forwards {prompt} requests to the upstream generate endpoint and
// relays the upstream JSON back to the caller.
type Handler struct {
	config Config
	client *http.Client
}

type Option func(*Handler)

func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

func NewHandler(config Config, options ...Option) *Handler {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	h := &Handler{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range options {
		o(h)
	}
	return h
}

type request struct {
	Prompt string `json:"prompt"`
}

type upstreamRequest struct {
	Prompt          string  `json:"prompt"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpjson.WriteError(w, http.StatusMethodNotAllowed, "Use POST")
		return
	}

	var body request
	if err := httpjson.Read(r, &body); err != nil {
		log.Debug().Err(err).Msg("could not decode proxy request")
	}
	if body.Prompt == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	if h.config.APIKey == "" {
		httpjson.WriteError(w, http.StatusInternalServerError, "Server not configured")
		return
	}

	status, data, err := h.forward(r, body.Prompt)
	if err != nil {
		log.Error().Err(err).Str("endpoint", h.config.Endpoint).Msg("proxy upstream call failed")
		httpjson.WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if status < 200 || status > 299 {
		log.Warn().Int("status", status).Str("endpoint", h.config.Endpoint).Msg("proxy upstream returned an error")
		httpjson.Write(w, http.StatusBadGateway, httpjson.ErrorResponse{Error: "Upstream error", Details: data})
		return
	}
	httpjson.Write(w, http.StatusOK, data)
}

// forward posts prompt upstream and returns the status and the JSON body.
func (h *Handler) forward(r *http.Request, prompt string) (int, json.RawMessage, error) {
	payload, err := json.Marshal(upstreamRequest{
		Prompt:          prompt,
		MaxOutputTokens: h.config.MaxOutputTokens,
		Temperature:     h.config.Temperature,
	})
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errors.Wrap(err, "could not build upstream request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "upstream request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, errors.Wrap(err, "could not read upstream response")
	}
	if !json.Valid(b) {
		return 0, nil, errors.Errorf("upstream returned non-JSON body (status %d)", resp.StatusCode)
	}
	return resp.StatusCode, json.RawMessage(b), nil
}
