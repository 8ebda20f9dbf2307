package server

import (
	"net/http"
	"time"

	"github.com/go-go-golems/microsurgery-gpt/internal/httpjson"
	"github.com/go-go-golems/microsurgery-gpt/pkg/conversation"
	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/go-go-golems/microsurgery-gpt/pkg/proxy"
	"github.com/go-go-golems/microsurgery-gpt/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP surface a browser front end talks to: the state and send
// entry point of one chat session, plus the optional stateless proxy.
type Server struct {
	Session *session.Session
	// Proxy is mounted on proxy.Route when set.
	Proxy http.Handler
}

type SessionResponse struct {
	SessionID  string                 `json:"sessionId"`
	Messages   []conversation.Message `json:"messages"`
	Busy       bool                   `json:"busy"`
	Configured bool                   `json:"configured"`
	Model      string                 `json:"model"`
}

type ConfigureRequest struct {
	APIKey string `json:"apiKey"`
}

type SendRequest struct {
	Text string `json:"text"`
}

type SendResponse struct {
	Message *conversation.Message `json:"message"`
}

type TopicsResponse struct {
	Topics     []persona.Topic `json:"topics"`
	Disclaimer string          `json:"disclaimer"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]any{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/configure", s.handleConfigure)
	mux.HandleFunc("POST /api/send", s.handleSend)
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	if s.Proxy != nil {
		mux.Handle(proxy.Route, s.Proxy)
	}

	return withAccessLog(mux)
}

func withAccessLog(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
	h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
	return hlog.NewHandler(log.Logger)(h)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "server misconfigured: no session")
		return
	}
	snap := s.Session.Snapshot()
	httpjson.Write(w, http.StatusOK, SessionResponse{
		SessionID:  s.Session.SessionID,
		Messages:   snap.Messages,
		Busy:       snap.Busy,
		Configured: snap.Configured,
		Model:      s.Session.Persona().Model,
	})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "server misconfigured: no session")
		return
	}
	var body ConfigureRequest
	if err := httpjson.Read(r, &body); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.Session.Configure(r.Context(), body.APIKey)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, gateway.ErrEmptyAPIKey):
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionBusy):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("configure failed")
		httpjson.WriteError(w, http.StatusBadGateway, "could not configure model gateway")
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "server misconfigured: no session")
		return
	}
	var body SendRequest
	if err := httpjson.Read(r, &body); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.Session.Send(r.Context(), body.Text)
	switch {
	case err == nil && msg == nil:
		w.WriteHeader(http.StatusNoContent)
	case err == nil:
		logEvent(hlog.FromRequest(r), msg)
		httpjson.Write(w, http.StatusOK, SendResponse{Message: msg})
	case errors.Is(err, gateway.ErrNotConfigured), errors.Is(err, session.ErrSessionBusy):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("send failed")
		httpjson.WriteError(w, http.StatusInternalServerError, "send failed")
	}
}

func logEvent(l *zerolog.Logger, msg *conversation.Message) {
	e := l.Debug()
	if msg.IsError {
		e = l.Warn()
	}
	e.Str("message_id", msg.ID).Bool("is_error", msg.IsError).Msg("reply appended")
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "server misconfigured: no session")
		return
	}
	p := s.Session.Persona()
	httpjson.Write(w, http.StatusOK, TopicsResponse{
		Topics:     p.Topics,
		Disclaimer: p.Disclaimer,
	})
}
