package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/i2y/mcptime/internal/domain"
)

// toolErrorPrefix precedes the message of a failed time query in tool results.
const toolErrorPrefix = "Error processing mcp-server-time query: "

// ToMCPTools converts tool descriptors to their MCP wire form.
func ToMCPTools(tools []domain.Tool) []mcp.Tool {
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToMCPTool(t))
	}
	return out
}

// ToMCPTool converts one tool descriptor to its MCP wire form.
func ToMCPTool(t domain.Tool) mcp.Tool {
	props := make(map[string]any, len(t.InputSchema.Properties))
	for name, p := range t.InputSchema.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		props[name] = prop
	}

	tool := mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   t.InputSchema.Required,
		},
	}
	if t.ReadOnly {
		tool.Annotations = mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(true),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(true),
			OpenWorldHint:   mcp.ToBoolPtr(false),
		}
	}
	return tool
}

// CallResult renders the outcome of a tool invocation.
// Failed time queries become a tool result flagged isError. Any other error
// is returned for the caller to report at the protocol level.
func CallResult(result interface{}, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if IsQueryError(err) {
			return mcp.NewToolResultError(toolErrorPrefix + err.Error()), nil
		}
		return nil, err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// IsQueryError reports whether err is a failure of the time query itself.
func IsQueryError(err error) bool {
	return errors.Is(err, domain.ErrUnknownTimezone) || errors.Is(err, domain.ErrInvalidTimeFormat)
}

// IsParamsError reports whether err was caused by the caller's tools/call parameters.
func IsParamsError(err error) bool {
	return errors.Is(err, domain.ErrUnknownTool) ||
		errors.Is(err, domain.ErrMissingArgument) ||
		errors.Is(err, domain.ErrInvalidArgument)
}
