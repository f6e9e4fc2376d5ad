package mcpstdio

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/i2y/mcptime/internal/adapter/inbound/dispatch"
)

// Server serves the registered tools over stdin/stdout using mcp-go.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer builds an mcp-go server exposing every tool the lister returns.
// Calls are routed to caller with the same result mapping as the SSE transport.
func NewServer(ctx context.Context, lister dispatch.ToolLister, caller dispatch.ToolCaller, info dispatch.ServerInfo, logger *slog.Logger) (*Server, error) {
	logger = logger.With("component", "mcpstdio_server")

	mcpServer := server.NewMCPServer(
		info.Name,
		info.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(info.Instructions),
	)

	tools, err := lister.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	for _, tool := range tools {
		mcpServer.AddTool(dispatch.ToMCPTool(tool), toolHandler(caller, logger))
		logger.Debug("Registered tool", slog.String("tool_name", tool.Name))
	}

	return &Server{mcpServer: mcpServer, logger: logger}, nil
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Listen serves until ctx is cancelled or in is exhausted.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("Serving MCP over stdio")
	return stdio.Listen(ctx, in, out)
}

func toolHandler(caller dispatch.ToolCaller, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		result, err := dispatch.CallResult(caller.Execute(ctx, req.Params.Name, args))
		if err != nil {
			// mcp-go reports handler errors as JSON-RPC errors.
			logger.Info("Tool call rejected", slog.String("tool_name", req.Params.Name), slog.Any("error", err))
			return nil, err
		}
		return result, nil
	}
}
