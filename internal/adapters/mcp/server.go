// Package mcp exposes the Guardian workflow as an MCP server so agent hosts
// can start queries, deliver approval decisions, and poll session state.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/guardian"
	"github.com/aretw0/guardian/pkg/domain"
)

// Engine defines the workflow operations the MCP surface needs.
type Engine interface {
	Start(ctx context.Context, request string) (*domain.Session, error)
	Resume(ctx context.Context, sessionID string, decision domain.Decision) (*domain.Session, error)
	Inspect(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionView is the structured tool output shared by all three tools.
type SessionView struct {
	SessionID       string          `json:"session_id"`
	Status          string          `json:"status"`
	Summary         string          `json:"summary,omitempty"`
	PendingAction   *domain.Outcome `json:"pending_action,omitempty"`
	PendingCategory string          `json:"pending_category,omitempty"`
	LastResult      *domain.Result  `json:"last_result,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// Server wraps the workflow engine and exposes it over MCP.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("guardian-mcp", strings.TrimSpace(guardian.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_query",
		mcp.WithDescription("Submit a natural language request. Read-only queries run to completion; a proposed database mutation suspends the session for approval."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The natural language request")),
		mcp.WithOutputSchema[SessionView](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartQuery))

	approveTool := mcp.NewTool("approve_mutation",
		mcp.WithDescription("Deliver an approve/reject/edit decision for a session suspended on a proposed mutation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The suspended session's ID")),
		mcp.WithString("decision", mcp.Required(), mcp.Description("One of approve, reject, edit")),
		mcp.WithString("modified_payload", mcp.Description("Replacement query text, required when decision is edit")),
		mcp.WithOutputSchema[SessionView](),
	)
	s.mcpServer.AddTool(approveTool, mcp.NewStructuredToolHandler(s.handleApproveMutation))

	inspectTool := mcp.NewTool("inspect_session",
		mcp.WithDescription("Retrieve the current state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session's ID")),
	)
	s.mcpServer.AddTool(inspectTool, s.handleInspectSession)
}

func (s *Server) handleStartQuery(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionView, error) {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return SessionView{}, errors.New("text is required")
	}

	session, err := s.engine.Start(ctx, text)
	if err != nil {
		return SessionView{}, fmt.Errorf("start failed: %w", err)
	}
	return viewOf(session), nil
}

func (s *Server) handleApproveMutation(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionView, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return SessionView{}, errors.New("session_id is required")
	}

	decision, err := DecodeDecision(args)
	if err != nil {
		return SessionView{}, err
	}

	session, err := s.engine.Resume(ctx, sessionID, decision)
	if err != nil {
		return SessionView{}, fmt.Errorf("resume failed: %w", err)
	}
	return viewOf(session), nil
}

func (s *Server) handleInspectSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	session, err := s.engine.Inspect(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", sessionID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	jsonBytes, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// DecodeDecision maps loosely typed tool arguments onto a decision. Unknown
// keys are ignored; the kind is lowercased before validation.
func DecodeDecision(args map[string]any) (domain.Decision, error) {
	var decision domain.Decision
	if err := mapstructure.Decode(args, &decision); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrMalformedDecision, err)
	}
	decision.Kind = domain.DecisionKind(strings.ToLower(strings.TrimSpace(string(decision.Kind))))
	if !decision.Kind.Valid() {
		return domain.Decision{}, fmt.Errorf("%w: unknown decision %q", domain.ErrMalformedDecision, decision.Kind)
	}
	return decision, nil
}

func viewOf(session *domain.Session) SessionView {
	v := SessionView{
		SessionID:       session.ID,
		Status:          string(session.Status),
		Summary:         session.Summary,
		PendingAction:   session.PendingAction,
		PendingCategory: session.PendingCategory,
		LastResult:      session.LastResult,
	}
	if session.Status == domain.StatusWaitingForApproval {
		v.Status = "approval_required"
		v.Message = "Approval is required for this database mutation."
	}
	return v
}
