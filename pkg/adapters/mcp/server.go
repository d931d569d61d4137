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
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/runner"
)

// FlowsURI is the resource exposing the flow catalog.
const FlowsURI = "concierge://flows"

// TurnResponse aligns with the HTTP API and provides a unified structure across adapters.
type TurnResponse struct {
	SessionID string      `json:"session_id" jsonschema_description:"The session the turn belongs to"`
	Turn      domain.Turn `json:"turn" jsonschema_description:"The assistant reply turn"`
}

// Conversations is the session surface the MCP tools drive. session.Manager implements it.
type Conversations interface {
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	SubmitText(ctx context.Context, sessionID, text string) (domain.Turn, error)
	SubmitForm(ctx context.Context, sessionID string, sub domain.FormSubmission) (domain.Turn, error)
	Answer(ctx context.Context, sessionID string, promptTurnID int64, values domain.Draft) (domain.Turn, error)
}

// Server exposes conversations as MCP tools.
type Server struct {
	convs     Conversations
	flows     ports.FlowCatalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(convs Conversations, flows ports.FlowCatalog, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		convs:     convs,
		flows:     flows,
		logger:    logger,
		mcpServer: server.NewMCPServer("concierge-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_text",
		mcp.WithDescription("Send a free-text message to the assistant, e.g. \"book service\". Returns the assistant reply turn: text, a form prompt, or a confirmation card."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID; a new one starts on first use")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User utterance")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendText))

	s.mcpServer.AddTool(mcp.NewTool("answer_form",
		mcp.WithDescription("Answer the form prompt carried by an earlier assistant turn."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithNumber("turn_id", mcp.Required(), mcp.Description("ID of the assistant turn carrying the form")),
		mcp.WithString("values", mcp.Required(), mcp.Description("JSON object of field name to value")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleAnswerForm))

	s.mcpServer.AddTool(mcp.NewTool("submit_form",
		mcp.WithDescription("Submit a form explicitly, carrying the draft of the prompt it answers."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow of the prompt")),
		mcp.WithString("step_id", mcp.Description("Step of the prompt")),
		mcp.WithString("carried", mcp.Description("JSON object of the prompt's draft")),
		mcp.WithString("values", mcp.Required(), mcp.Description("JSON object of field name to value")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSubmitForm))

	s.mcpServer.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get every turn of a conversation in order."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the flows the assistant can run, with their steps and fields."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.flows.List())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleSendText(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, text, err := sessionAndString(args, "text")
	if err != nil {
		return TurnResponse{}, err
	}
	clean, err := runner.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP send_text: Input rejected", "error", err, "size", len(text))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	turn, err := s.convs.SubmitText(ctx, sessionID, clean)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("send_text failed: %w", err)
	}
	return TurnResponse{SessionID: sessionID, Turn: turn}, nil
}

func (s *Server) handleAnswerForm(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, raw, err := sessionAndString(args, "values")
	if err != nil {
		return TurnResponse{}, err
	}
	turnID, ok := args["turn_id"].(float64)
	if !ok {
		return TurnResponse{}, errors.New("turn_id is required")
	}
	values, err := parseDraft(raw)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("values: %w", err)
	}

	turn, err := s.convs.Answer(ctx, sessionID, int64(turnID), values)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("answer_form failed: %w", err)
	}
	return TurnResponse{SessionID: sessionID, Turn: turn}, nil
}

func (s *Server) handleSubmitForm(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	sessionID, raw, err := sessionAndString(args, "values")
	if err != nil {
		return TurnResponse{}, err
	}
	sub := domain.FormSubmission{}
	sub.FlowID, _ = args["flow_id"].(string)
	sub.StepID, _ = args["step_id"].(string)
	if sub.Values, err = parseDraft(raw); err != nil {
		return TurnResponse{}, fmt.Errorf("values: %w", err)
	}
	if carried, ok := args["carried"].(string); ok {
		if sub.Carried, err = parseDraft(carried); err != nil {
			return TurnResponse{}, fmt.Errorf("carried: %w", err)
		}
	}

	turn, err := s.convs.SubmitForm(ctx, sessionID, sub)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("submit_form failed: %w", err)
	}
	return TurnResponse{SessionID: sessionID, Turn: turn}, nil
}

func (s *Server) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	turns, err := s.convs.Turns(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("transcript failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(turns)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowsURI, "Flow Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.flows.List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode flows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func sessionAndString(args map[string]interface{}, key string) (string, string, error) {
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return "", "", errors.New("session_id is required")
	}
	value, ok := args[key].(string)
	if !ok {
		return "", "", fmt.Errorf("%s is required", key)
	}
	return sessionID, value, nil
}

func parseDraft(raw string) (domain.Draft, error) {
	var d domain.Draft
	if strings.TrimSpace(raw) == "" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domain.Draft{}, err
	}
	return runner.SanitizeValues(d)
}
