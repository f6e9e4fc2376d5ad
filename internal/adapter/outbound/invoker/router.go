package invoker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/mcptime/internal/domain"
	"github.com/i2y/mcptime/internal/usecase"
)

// TimeOperations is the subset of usecase.TimeService the router dispatches to.
type TimeOperations interface {
	GetCurrentTime(ctx context.Context, zone string) (domain.TimeResult, error)
	ConvertTime(ctx context.Context, sourceZone, clock, targetZone string) (domain.TimeConversionResult, error)
}

// Router implements usecase.ToolInvoker and routes invocations by tool name.
type Router struct {
	ops    TimeOperations
	logger *slog.Logger
}

var _ usecase.ToolInvoker = (*Router)(nil)

// NewRouter creates a new invoker router.
func NewRouter(ops TimeOperations, logger *slog.Logger) *Router {
	return &Router{
		ops:    ops,
		logger: logger.With("component", "invoker_router"),
	}
}

// Invoke routes the invocation to the time operation backing tool.
// Arguments are expected to be validated already.
func (r *Router) Invoke(ctx context.Context, tool domain.ToolName, args map[string]string) (interface{}, error) {
	log := r.logger.With(slog.String("tool", string(tool)))

	switch tool {
	case domain.ToolGetCurrentTime:
		log.Debug("Routing to current time")
		return r.ops.GetCurrentTime(ctx, args["timezone"])

	case domain.ToolConvertTime:
		log.Debug("Routing to time conversion")
		return r.ops.ConvertTime(ctx, args["source_timezone"], args["time"], args["target_timezone"])

	default:
		log.Error("Unknown tool")
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, tool)
	}
}
