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

	"github.com/aretw0/hanoi"
	"github.com/aretw0/hanoi/internal/logging"
	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/aretw0/hanoi/pkg/policy"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine defines the interface required by the MCP server to drive the learner.
type Engine interface {
	TryStartLearning(ctx context.Context, maxEpisodes int, stepDelay time.Duration) (<-chan error, error)
	StopLearning()
	Reset()
	Status() hanoi.Status
	OptimalPolicy() policy.Map
	SolveWithPolicy() domain.Trajectory
	Solve(p policy.Map) domain.Trajectory
	QValues() []domain.QEntry
	ValidateMove(state domain.State, action domain.Action) error
}

// SolveArgs are the arguments of the solve tool.
type SolveArgs struct {
	Reference bool `json:"reference"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	ctx       context.Context
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. Learning runs started by tools are bound to ctx.
func NewServer(ctx context.Context, engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		ctx:       ctx,
		logger:    logger,
		mcpServer: server.NewMCPServer("hanoi-mcp", strings.TrimSpace(hanoi.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts down when ctx ends.
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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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
	// TOOL: start_learning
	s.mcpServer.AddTool(mcp.NewTool("start_learning",
		mcp.WithDescription("Start a Q-learning run in the background. Fails if a run is already active."),
		mcp.WithNumber("max_episodes", mcp.Required(), mcp.Description("Number of episodes to play (positive)")),
		mcp.WithNumber("step_delay_ms", mcp.Description("Pause between steps in milliseconds (default 0)")),
	), s.handleStartLearning)

	// TOOL: stop_learning
	s.mcpServer.AddTool(mcp.NewTool("stop_learning",
		mcp.WithDescription("Stop the active learning run after its current step."),
	), s.handleStopLearning)

	// TOOL: reset
	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Stop learning and clear the Q-table and statistics."),
	), s.handleReset)

	// TOOL: get_status
	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the running flag, exploration rate and training statistics."),
		mcp.WithOutputSchema[hanoi.Status](),
	), mcp.NewStructuredToolHandler(s.handleGetStatus))

	// TOOL: get_policy
	s.mcpServer.AddTool(mcp.NewTool("get_policy",
		mcp.WithDescription("Get the greedy action for every state, keyed by state (peg per disk, e.g. 0|0|0)."),
	), s.handleGetPolicy)

	// TOOL: solve
	s.mcpServer.AddTool(mcp.NewTool("solve",
		mcp.WithDescription("Replay the learned policy (or the known optimal one) from the start state."),
		mcp.WithBoolean("reference", mcp.Description("Replay the known optimal 3-disk policy instead of the learned one")),
		mcp.WithOutputSchema[domain.Trajectory](),
	), mcp.NewStructuredToolHandler(s.handleSolve))

	// TOOL: validate_move
	s.mcpServer.AddTool(mcp.NewTool("validate_move",
		mcp.WithDescription("Check whether moving a disk is legal in a state."),
		mcp.WithString("state", mcp.Required(), mcp.Description("State key, peg per disk, e.g. 0|0|0")),
		mcp.WithNumber("disk", mcp.Required(), mcp.Description("Disk index, 0 is the smallest")),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Source peg")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target peg")),
	), s.handleValidateMove)
}

func (s *Server) handleStartLearning(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodes, err := request.RequireInt("max_episodes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	delayMs := request.GetInt("step_delay_ms", 0)
	if episodes <= 0 || delayMs < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("%v: max_episodes must be positive and step_delay_ms not negative", domain.ErrInvalidArgument)), nil
	}
	done, err := s.engine.TryStartLearning(s.ctx, episodes, time.Duration(delayMs)*time.Millisecond)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	go func() {
		if err := <-done; err != nil {
			s.logger.Error("MCP: learning run failed", "error", err)
		}
	}()
	return mcp.NewToolResultText(fmt.Sprintf("learning started: %d episodes, %d ms step delay", episodes, delayMs)), nil
}

func (s *Server) handleStopLearning(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.StopLearning()
	return s.statusText()
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.Reset()
	return s.statusText()
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (hanoi.Status, error) {
	return s.engine.Status(), nil
}

func (s *Server) handleGetPolicy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.engine.OptimalPolicy())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSolve(ctx context.Context, request mcp.CallToolRequest, args SolveArgs) (domain.Trajectory, error) {
	if args.Reference {
		return s.engine.Solve(policy.OptimalThreeDisk()), nil
	}
	return s.engine.SolveWithPolicy(), nil
}

func (s *Server) handleValidateMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := domain.StateKey(key).State()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	action := domain.NewAction(
		request.GetInt("disk", -1),
		request.GetInt("from", -1),
		request.GetInt("to", -1),
	)
	if err := s.engine.ValidateMove(state, action); err != nil {
		var invalid *domain.InvalidActionError
		if errors.As(err, &invalid) {
			return mcp.NewToolResultText(fmt.Sprintf("illegal: %s", invalid.Reason)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("legal: %s", action)), nil
}

func (s *Server) statusText() (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.engine.Status())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: hanoi://qtable
	s.mcpServer.AddResource(mcp.NewResource("hanoi://qtable", "Current Q-table",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.QValues())
		if err != nil {
			return nil, fmt.Errorf("failed to encode q-table: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "hanoi://qtable",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
