package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/stretchr/testify/require"
)

func TestGenerateConfig(t *testing.T) {
	p := persona.Default()
	cfg := generateConfig(p)

	require.NotNil(t, cfg.Temperature)
	require.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	require.Equal(t, p.SystemInstruction, cfg.SystemInstruction.Parts[0].Text)
}

func TestIsGeminiModel(t *testing.T) {
	require.True(t, IsGeminiModel("gemini-2.5-flash"))
	require.False(t, IsGeminiModel("text-bison-001"))
}

type recordedRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

type fakeGeminiServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	reply    string
}

func (s *fakeGeminiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Path:   r.URL.Path,
		APIKey: r.Header.Get("x-goog-api-key"),
		Body:   body,
	})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": s.reply}},
				},
				"finishReason": "STOP",
			},
		},
	})
}

func TestFactory_ChatRoundTrip(t *testing.T) {
	fake := &fakeGeminiServer{reply: "ANSWER"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	f := NewFactory(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	chat, err := f.NewChat(context.Background(), "K1", persona.Default())
	require.NoError(t, err)

	reply, err := chat.SendMessage(context.Background(), "What is DIEP?")
	require.NoError(t, err)
	require.Equal(t, "ANSWER", reply)

	_, err = chat.SendMessage(context.Background(), "And SIEA?")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.requests, 2)

	first := fake.requests[0]
	require.True(t, strings.HasSuffix(first.Path, "gemini-2.5-flash:generateContent"), first.Path)
	require.Equal(t, "K1", first.APIKey)
	require.Contains(t, first.Body, "systemInstruction")
	genCfg, ok := first.Body["generationConfig"].(map[string]any)
	require.True(t, ok)
	require.InDelta(t, 0.3, genCfg["temperature"], 1e-6)
	contents, ok := first.Body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)

	// the second turn carries the first exchange as history
	contents, ok = fake.requests[1].Body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
}

func TestFactory_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	}))
	defer srv.Close()

	f := NewFactory(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	chat, err := f.NewChat(context.Background(), "bad", persona.Default())
	require.NoError(t, err)

	_, err = chat.SendMessage(context.Background(), "hello")
	require.Error(t, err)
}

func TestFactory_NilPersona(t *testing.T) {
	_, err := NewFactory().NewChat(context.Background(), "K1", nil)
	require.Error(t, err)
}
