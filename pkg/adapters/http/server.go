package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/runner"
	"github.com/aretw0/concierge/pkg/schema"
)

// Service is the conversation surface the API exposes. session.Manager implements it.
type Service interface {
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)
	LoadOrStart(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	Busy(ctx context.Context, sessionID string) (bool, error)
	SubmitText(ctx context.Context, sessionID, text string) (domain.Turn, error)
	SubmitForm(ctx context.Context, sessionID string, sub domain.FormSubmission) (domain.Turn, error)
	Answer(ctx context.Context, sessionID string, promptTurnID int64, values domain.Draft) (domain.Turn, error)
}

// Server serves the REST and SSE API.
type Server struct {
	Service Service
	Flows   ports.FlowCatalog
	Streams *StreamManager
	Logger  *slog.Logger
	Version string
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a stream manager, typically the one wired as the
// session manager's change listener.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// WithVersion sets the build version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// NewServer creates a Server. Without WithStreams the SSE endpoint never emits diffs.
func NewServer(svc Service, flows ports.FlowCatalog, opts ...Option) *Server {
	s := &Server{
		Service: svc,
		Flows:   flows,
		Logger:  logging.NewNop(),
		Version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/flows", s.ListFlows)
	r.Get("/flows/{flowID}", s.GetFlow)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/turns", s.ListTurns)
			r.Get("/busy", s.GetBusy)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/messages", s.SubmitText)
			r.Post("/forms", s.SubmitForm)
			r.Post("/turns/{turnID}/answer", s.AnswerPrompt)
		})
	})
	return r
}

// NewHandler creates the HTTP handler with CORS enabled.
func NewHandler(svc Service, flows ports.FlowCatalog, opts ...Option) http.Handler {
	return enableCORS(NewServer(svc, flows, opts...).Routes())
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Concierge API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "concierge-http",
		"version":     strings.TrimSpace(s.Version),
		"api_version": apiVersion,
	})
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Flows.List())
}

// GetFlow handles GET /flows/{flowID}.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	var flowID string
	if !s.bindPath(w, r, "flowID", &flowID) {
		return
	}
	flow, err := s.Flows.Get(flowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, flow)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateSession handles POST /sessions. A missing id gets a random one.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, r, "Invalid request body", err)
			return
		}
	}
	id := strings.TrimSpace(body.ID)
	if id == "" {
		id = uuid.NewString()
	}
	conv, err := s.Service.LoadOrStart(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conv)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	conv, err := s.Service.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.Service.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTurns handles GET /sessions/{id}/turns.
func (s *Server) ListTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var since *int64
	if err := runtime.BindQueryParameter("form", true, false, "since", r.URL.Query(), &since); err != nil {
		s.badRequest(w, r, "Invalid format for parameter since", err)
		return
	}

	turns, err := s.Service.Turns(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]domain.Turn, 0, len(turns))
	for _, t := range turns {
		if since == nil || t.ID > *since {
			out = append(out, t)
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetBusy handles GET /sessions/{id}/busy.
func (s *Server) GetBusy(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	busy, err := s.Service.Busy(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"busy": busy})
}

// SubmitText handles POST /sessions/{id}/messages.
func (s *Server) SubmitText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, r, "Invalid request body", err)
		return
	}
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.badRequest(w, r, fmt.Sprintf("Invalid input: %v", err), err)
		return
	}
	if strings.TrimSpace(text) == "" {
		s.badRequest(w, r, "text is required", nil)
		return
	}

	turn, err := s.Service.SubmitText(r.Context(), id, text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

// SubmitForm handles POST /sessions/{id}/forms.
func (s *Server) SubmitForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var sub domain.FormSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.badRequest(w, r, "Invalid request body", err)
		return
	}
	values, err := runner.SanitizeValues(sub.Values)
	if err != nil {
		s.badRequest(w, r, fmt.Sprintf("Invalid input: %v", err), err)
		return
	}
	sub.Values = values

	turn, err := s.Service.SubmitForm(r.Context(), id, sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

// AnswerPrompt handles POST /sessions/{id}/turns/{turnID}/answer.
func (s *Server) AnswerPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var turnID int64
	if !s.bindPath(w, r, "turnID", &turnID) {
		return
	}
	var body struct {
		Values domain.Draft `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, r, "Invalid request body", err)
		return
	}
	values, err := runner.SanitizeValues(body.Values)
	if err != nil {
		s.badRequest(w, r, fmt.Sprintf("Invalid input: %v", err), err)
		return
	}

	turn, err := s.Service.Answer(r.Context(), id, turnID, values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var watch *string
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &watch); err != nil {
		s.badRequest(w, r, "Invalid format for parameter watch", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to Session Updates", "session_id", id)
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if watch != nil {
		watchList = strings.Split(*watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !wanted(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// wanted applies the watch filter to an encoded diff.
func wanted(msg string, watchList []string) bool {
	if len(watchList) == 0 {
		return true
	}
	var diff domain.TranscriptDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "turns":
			if len(diff.Appended) > 0 {
				return true
			}
		case "status":
			if diff.Status != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	if !s.bindPath(w, r, "id", &id) {
		return "", false
	}
	return id, true
}

func (s *Server) bindPath(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), dest)
	if err != nil {
		s.badRequest(w, r, fmt.Sprintf("Invalid format for parameter %s", name), err)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var aggr *schema.AggregateError
	switch {
	case errors.As(err, &aggr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTurnNotFound),
		errors.Is(err, domain.ErrUnknownFlow),
		errors.Is(err, domain.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotAForm):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.Logger.DebugContext(r.Context(), "Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	var aggr *schema.AggregateError
	if errors.As(err, &aggr) {
		s.writeJSON(w, status, aggr)
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.Logger.WarnContext(r.Context(), "Bad request", "path", r.URL.Path, "msg", msg, "error", err)
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}
