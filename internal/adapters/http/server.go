// Package http exposes the Guardian workflow over a JSON HTTP API: query
// submission, the human approval callback, and session state polling.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/guardian/internal/logging"
	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/observability"
)

// Engine defines the workflow operations the API surface needs.
type Engine interface {
	Start(ctx context.Context, request string) (*domain.Session, error)
	Resume(ctx context.Context, sessionID string, decision domain.Decision) (*domain.Session, error)
	Inspect(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Server handles the HTTP surface for a workflow engine.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for request handling events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	r.Post("/query", s.handleQuery)
	r.Post("/mutations/approve", s.handleApprove)
	r.Get("/sessions/{id}", s.handleSessionState)

	return r
}

type queryRequest struct {
	Text string `json:"text"`
}

type approvalRequest struct {
	SessionID     string `json:"session_id"`
	Decision      string `json:"decision"`
	ModifiedQuery string `json:"modified_payload,omitempty"`
}

// handleRoot serves basic service information and the available endpoints.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":     "guardian",
		"description": "Natural language to SQL service with human-in-the-loop approval for write operations",
		"endpoints": map[string]string{
			"POST /query":             "Submit a natural language request",
			"POST /mutations/approve": "Deliver an approve/reject/edit decision for a suspended session",
			"GET /sessions/{id}":      "Poll the state of a session",
			"GET /health":             "Health check",
			"GET /metrics":            "Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "guardian",
	})
}

// handleQuery starts a session. Read-only requests run to completion; a
// request that proposes a gated mutation returns an approval_required envelope
// describing the suspension.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeDetail(w, http.StatusBadRequest, "text is required")
		return
	}

	session, err := s.engine.Start(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if session.Status == domain.StatusWaitingForApproval {
		s.writeJSON(w, http.StatusOK, approvalEnvelope(session))
		return
	}
	s.writeJSON(w, http.StatusOK, completedEnvelope(session))
}

// handleApprove delivers a human decision to a suspended session and reports
// the state the session settled in afterwards.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" {
		s.writeDetail(w, http.StatusBadRequest, "session_id is required")
		return
	}

	decision := domain.Decision{
		Kind:          domain.DecisionKind(strings.ToLower(strings.TrimSpace(req.Decision))),
		ModifiedQuery: req.ModifiedQuery,
	}

	session, err := s.engine.Resume(r.Context(), req.SessionID, decision)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The loop may propose another gated mutation after an approval.
	if session.Status == domain.StatusWaitingForApproval {
		s.writeJSON(w, http.StatusOK, approvalEnvelope(session))
		return
	}

	resp := map[string]any{
		"session_id": session.ID,
		"status":     decisionStatus(decision.Kind),
		"summary":    session.Summary,
	}
	switch decision.Kind {
	case domain.DecisionReject:
		resp["message"] = "Database mutation was rejected. Workflow terminated."
	case domain.DecisionEdit:
		resp["result"] = sessionResult(session)
		resp["modified_payload"] = decision.ModifiedQuery
	default:
		resp["result"] = sessionResult(session)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSessionState serves the polling endpoint. An unknown session is a
// regular 200 response with a not_found status, not an HTTP error.
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := s.engine.Inspect(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"status":     "not_found",
			"message":    "Session not found.",
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := string(session.Status)
	if session.Status == domain.StatusWaitingForApproval || session.Status == domain.StatusWaitingForTool {
		status = "pending"
	}

	resp := map[string]any{
		"session_id": session.ID,
		"status":     status,
		"state": map[string]any{
			"original_request": session.OriginalRequest,
			"messages":         session.Log,
			"pending_action":   session.PendingAction,
			"pending_category": session.PendingCategory,
			"last_result":      session.LastResult,
			"history":          session.History,
			"summary":          session.Summary,
			"version":          session.Version,
			"created_at":       session.CreatedAt,
			"updated_at":       session.UpdatedAt,
		},
	}
	if session.Status == domain.StatusWaitingForApproval {
		resp["pending_action"] = session.PendingAction
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// approvalEnvelope describes a suspended session for the approving human.
func approvalEnvelope(session *domain.Session) map[string]any {
	capability := ""
	payload := ""
	if session.PendingAction != nil {
		if session.PendingAction.IsAction() {
			capability = session.PendingAction.Action.Capability
			payload = session.PendingAction.Action.Input.QueryText()
		} else if session.PendingAction.IsAnswer() {
			payload = session.PendingAction.Answer.Text
		}
	}
	return map[string]any{
		"session_id": session.ID,
		"status":     "approval_required",
		"interrupt": map[string]any{
			"action_required": "review_and_approve",
			"category":        session.PendingCategory,
			"capability":      capability,
			"payload":         payload,
			"warning":         "This operation will modify the database. Please review carefully.",
			"options": map[string]string{
				"approve": "Execute the query as shown",
				"reject":  "Cancel this operation",
				"edit":    "Modify the query before execution",
			},
		},
		"pending_action": session.PendingAction,
		"message":        "Approval is required for this database mutation.",
	}
}

// completedEnvelope describes a session that ran to a terminal status.
func completedEnvelope(session *domain.Session) map[string]any {
	summary := session.Summary
	if summary == "" {
		summary = "Query completed."
	}
	result := sessionResult(session)
	if result == nil {
		result = summary
	}
	return map[string]any{
		"session_id": session.ID,
		"status":     string(session.Status),
		"result":     result,
		"summary":    summary,
		"messages":   session.Log,
	}
}

// sessionResult extracts the most recent capability result for a response.
func sessionResult(session *domain.Session) any {
	if session.LastResult == nil {
		return nil
	}
	r := *session.LastResult
	switch {
	case r.IsError():
		return map[string]any{"error": r.Error}
	case r.Value != nil:
		return r.Value
	case r.Text != "":
		return r.Text
	}
	return nil
}

func decisionStatus(kind domain.DecisionKind) string {
	switch kind {
	case domain.DecisionReject:
		return "rejected"
	case domain.DecisionEdit:
		return "edited_and_executed"
	default:
		return "approved_and_executed"
	}
}

// writeError maps domain errors to HTTP statuses: unknown session 404,
// malformed decision 400, illegal or raced transition 409, the rest 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeDetail(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, domain.ErrMalformedDecision):
		s.writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		s.writeDetail(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		s.writeDetail(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, code int, detail string) {
	s.writeJSON(w, code, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		observability.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
	})
}
