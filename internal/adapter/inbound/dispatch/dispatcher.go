package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/mcptime/internal/domain"
	"github.com/i2y/mcptime/pkg/shared/mcpjsonrpc"
)

const instrumentationName = "github.com/i2y/mcptime/internal/adapter/inbound/dispatch"

// methodInitializedNotification is sent by the client once initialize succeeded.
const methodInitializedNotification = "notifications/initialized"

// ToolLister lists the tool descriptors served to clients.
type ToolLister interface {
	Execute(ctx context.Context) ([]domain.Tool, error)
}

// ToolCaller validates and runs a tool call.
type ToolCaller interface {
	Execute(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error)
}

// ServerInfo is reported to clients in the initialize result.
type ServerInfo struct {
	Name         string
	Version      string
	Instructions string
}

// Dispatcher holds what every session shares. It carries no per-session state.
type Dispatcher struct {
	lister    ToolLister
	caller    ToolCaller
	info      ServerInfo
	logger    *slog.Logger
	tracer    trace.Tracer
	toolCalls metric.Int64Counter
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(lister ToolLister, caller ToolCaller, info ServerInfo, logger *slog.Logger) *Dispatcher {
	logger = logger.With("component", "mcp_dispatcher")

	toolCalls, err := otel.Meter(instrumentationName).Int64Counter(
		"mcp.tool.calls",
		metric.WithDescription("Number of tools/call requests by tool and outcome"),
	)
	if err != nil {
		logger.Warn("Failed to create tool call counter", slog.Any("error", err))
		toolCalls = noop.Int64Counter{}
	}

	return &Dispatcher{
		lister:    lister,
		caller:    caller,
		info:      info,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		toolCalls: toolCalls,
	}
}

// State is the lifecycle position of a Session.
type State int

const (
	StateAwaitingInitialize State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingInitialize:
		return "awaiting-initialize"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the protocol state of one client connection.
// Sessions never share mutable state with each other.
type Session struct {
	id     string
	d      *Dispatcher
	logger *slog.Logger

	mu              sync.Mutex
	state           State
	protocolVersion string
}

// NewSession starts a session in the awaiting-initialize state.
func (d *Dispatcher) NewSession(id string) *Session {
	return &Session{
		id:     id,
		d:      d,
		logger: d.logger.With(slog.String("session_id", id)),
		state:  StateAwaitingInitialize,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ProtocolVersion returns the version agreed during initialize, or "" before it.
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// Close moves the session to the closed state. Later requests are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = StateClosed
		s.logger.Debug("Session closed")
	}
}

// Handle processes one raw JSON-RPC message and returns the response to send.
// ok is false for notifications, which are never answered.
// Handle never fails: every problem is reported as a JSON-RPC error response.
func (s *Session) Handle(ctx context.Context, raw []byte) (resp *mcpjsonrpc.Response, ok bool) {
	var req mcpjsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn("Failed to parse message", slog.Any("error", err))
		return mcpjsonrpc.NewError(nil, mcpjsonrpc.CodeParseError, "Parse error"), true
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic while handling request",
				slog.String("method", req.Method),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			resp, ok = mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInternalError, "Internal error"), !req.IsNotification()
		}
	}()

	if req.Version != mcpjsonrpc.Version || req.Method == "" {
		s.logger.Warn("Invalid request envelope", slog.String("jsonrpc", req.Version), slog.String("method", req.Method))
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidRequest, "Invalid Request"), true
	}

	ctx, span := s.d.tracer.Start(ctx, "mcp."+req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
			attribute.String("mcp.session_id", s.id),
		),
	)
	defer span.End()

	if req.IsNotification() {
		s.handleNotification(req.Method)
		return nil, false
	}

	resp = s.handleRequest(ctx, &req)
	if resp.Error != nil {
		span.SetStatus(codes.Error, resp.Error.Message)
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", resp.Error.Code))
	}
	return resp, true
}

func (s *Session) handleNotification(method string) {
	switch method {
	case methodInitializedNotification:
		s.logger.Debug("Client initialized", slog.String("state", s.State().String()))
	default:
		s.logger.Debug("Ignoring notification", slog.String("method", method))
	}
}

func (s *Session) handleRequest(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	log := s.logger.With(slog.String("method", req.Method))
	method := mcp.MCPMethod(req.Method)

	switch state := s.State(); {
	case state == StateClosed:
		log.Warn("Request on closed session")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidRequest, "session closed")
	case state == StateAwaitingInitialize && method != mcp.MethodInitialize && method != mcp.MethodPing:
		log.Warn("Request before initialize")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidRequest, "session not initialized")
	}

	switch method {
	case mcp.MethodInitialize:
		return s.initialize(req)
	case mcp.MethodPing:
		return mcpjsonrpc.NewResult(req.ID, &mcp.EmptyResult{})
	case mcp.MethodToolsList:
		return s.listTools(ctx, req)
	case mcp.MethodToolsCall:
		return s.callTool(ctx, req)
	default:
		log.Debug("Method not found")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeMethodNotFound, "Method not found")
	}
}

func (s *Session) initialize(req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	var params mcp.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidParams, "Invalid params")
		}
	}

	version := negotiateVersion(params.ProtocolVersion)

	s.mu.Lock()
	if s.state != StateAwaitingInitialize {
		s.mu.Unlock()
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidRequest, "session already initialized")
	}
	s.state = StateReady
	s.protocolVersion = version
	s.mu.Unlock()

	s.logger.Info("Session initialized",
		slog.String("client_name", params.ClientInfo.Name),
		slog.String("client_version", params.ClientInfo.Version),
		slog.String("requested_protocol_version", params.ProtocolVersion),
		slog.String("protocol_version", version),
	)

	result := &mcp.InitializeResult{
		ProtocolVersion: version,
		ServerInfo: mcp.Implementation{
			Name:    s.d.info.Name,
			Version: s.d.info.Version,
		},
		Instructions: s.d.info.Instructions,
	}
	result.Capabilities.Tools = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{ListChanged: false}
	return mcpjsonrpc.NewResult(req.ID, result)
}

// negotiateVersion echoes a supported client version and otherwise offers the latest.
func negotiateVersion(requested string) string {
	if slices.Contains(mcp.ValidProtocolVersions, requested) {
		return requested
	}
	return mcp.LATEST_PROTOCOL_VERSION
}

func (s *Session) listTools(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	tools, err := s.d.lister.Execute(ctx)
	if err != nil {
		s.logger.Error("Failed to list tools", slog.Any("error", err))
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInternalError, "Internal error")
	}
	return mcpjsonrpc.NewResult(req.ID, &mcp.ListToolsResult{Tools: ToMCPTools(tools)})
}

func (s *Session) callTool(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.logger.Warn("Invalid tools/call params", slog.Any("error", err))
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidParams, "Invalid params")
	}

	var args map[string]interface{}
	switch a := params.Arguments.(type) {
	case nil:
		args = map[string]interface{}{}
	case map[string]interface{}:
		args = a
	default:
		s.d.recordCall(ctx, params.Name, "invalid_params")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidParams, "Invalid params: arguments must be an object")
	}

	log := s.logger.With(slog.String("tool_name", params.Name))
	result, err := CallResult(s.d.caller.Execute(ctx, params.Name, args))
	switch {
	case err == nil && result.IsError:
		log.Info("Tool call failed", slog.Any("content", result.Content))
		s.d.recordCall(ctx, params.Name, "tool_error")
		return mcpjsonrpc.NewResult(req.ID, result)
	case err == nil:
		log.Debug("Tool call succeeded")
		s.d.recordCall(ctx, params.Name, "success")
		return mcpjsonrpc.NewResult(req.ID, result)
	case IsParamsError(err):
		log.Info("Tool call rejected", slog.Any("error", err))
		s.d.recordCall(ctx, params.Name, "invalid_params")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInvalidParams, err.Error())
	default:
		log.Error("Tool call errored", slog.Any("error", err))
		s.d.recordCall(ctx, params.Name, "internal_error")
		return mcpjsonrpc.NewError(req.ID, mcpjsonrpc.CodeInternalError, "Internal error")
	}
}

func (d *Dispatcher) recordCall(ctx context.Context, tool, outcome string) {
	d.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mcp.tool", tool),
		attribute.String("outcome", outcome),
	))
}
