package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type upstreamCall struct {
	Auth string
	Body upstreamRequest
}

func newUpstream(t *testing.T, status int, body string, calls *[]upstreamCall) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req upstreamRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		*calls = append(*calls, upstreamCall{Auth: r.Header.Get("Authorization"), Body: req})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(h http.Handler, method string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, Route, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	ret := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ret), w.Body.String())
	return ret
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(Config{APIKey: "k"})
	w := do(h, http.MethodGet, "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "Use POST", decodeBody(t, w)["error"])
	require.Equal(t, http.MethodPost, w.Header().Get("Allow"))
}

func TestHandler_MissingPrompt(t *testing.T) {
	h := NewHandler(Config{APIKey: "k"})
	for _, body := range []string{"", "{}", `{"prompt":""}`, `{"prompt":42}`, "not-json"} {
		w := do(h, http.MethodPost, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		require.Equal(t, "Missing prompt", decodeBody(t, w)["error"])
	}
}

func TestHandler_NotConfigured(t *testing.T) {
	h := NewHandler(Config{})
	w := do(h, http.MethodPost, `{"prompt":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Server not configured", decodeBody(t, w)["error"])
}

func TestHandler_PassThrough(t *testing.T) {
	var calls []upstreamCall
	upstream := newUpstream(t, http.StatusOK, `{"candidates":[{"output":"R1"}]}`, &calls)

	h := NewHandler(Config{APIKey: "server-key", Endpoint: upstream.URL}, WithHTTPClient(upstream.Client()))
	w := do(h, http.MethodPost, `{"prompt":"What is DIEP?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"candidates":[{"output":"R1"}]}`, w.Body.String())

	require.Len(t, calls, 1)
	require.Equal(t, "Bearer server-key", calls[0].Auth)
	require.Equal(t, "What is DIEP?", calls[0].Body.Prompt)
	require.Equal(t, DefaultMaxOutputTokens, calls[0].Body.MaxOutputTokens)
	require.InDelta(t, DefaultTemperature, calls[0].Body.Temperature, 1e-9)
}

func TestHandler_UpstreamError(t *testing.T) {
	var calls []upstreamCall
	upstream := newUpstream(t, http.StatusForbidden, `{"error":{"message":"denied"}}`, &calls)

	h := NewHandler(Config{APIKey: "server-key", Endpoint: upstream.URL}, WithHTTPClient(upstream.Client()))
	w := do(h, http.MethodPost, `{"prompt":"hi"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.JSONEq(t, `{"error":"Upstream error","details":{"error":{"message":"denied"}}}`, w.Body.String())
}

func TestHandler_UpstreamNotJSON(t *testing.T) {
	var calls []upstreamCall
	upstream := newUpstream(t, http.StatusOK, `<html>oops</html>`, &calls)

	h := NewHandler(Config{APIKey: "server-key", Endpoint: upstream.URL}, WithHTTPClient(upstream.Client()))
	w := do(h, http.MethodPost, `{"prompt":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal error", decodeBody(t, w)["error"])
}

func TestHandler_UpstreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	h := NewHandler(Config{APIKey: "server-key", Endpoint: endpoint})
	w := do(h, http.MethodPost, `{"prompt":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal error", decodeBody(t, w)["error"])
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler(Config{APIKey: "k"})
	require.Equal(t, DefaultEndpoint, h.config.Endpoint)
	require.Equal(t, DefaultMaxOutputTokens, h.config.MaxOutputTokens)
	require.InDelta(t, DefaultTemperature, h.config.Temperature, 1e-9)
}
