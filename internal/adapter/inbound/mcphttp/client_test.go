package mcphttp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/mcptime/internal/adapter/inbound/mcphttp"
	"github.com/i2y/mcptime/internal/domain"
)

// TestMCPClient drives the transport with the mcp-go SSE client.
func TestMCPClient(t *testing.T) {
	_, srv := newTestServer(t, mcphttp.Options{AuthToken: "secret"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.NewSSEMCPClient(srv.URL+"/mcp",
		transport.WithHeaders(map[string]string{"Authorization": "Bearer secret"}),
	)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "mcptime-test", Version: "1.0.0"}
	initResult, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, mcp.LATEST_PROTOCOL_VERSION, initResult.ProtocolVersion)
	assert.Equal(t, "mcp-time", initResult.ServerInfo.Name)

	require.NoError(t, c.Ping(ctx))

	t.Run("list tools", func(t *testing.T) {
		tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		require.NoError(t, err)
		require.Len(t, tools.Tools, 2)
		assert.Equal(t, "get_current_time", tools.Tools[0].Name)
		assert.Equal(t, "convert_time", tools.Tools[1].Name)
	})

	t.Run("convert time", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Name = "convert_time"
		req.Params.Arguments = map[string]any{
			"source_timezone": "Asia/Kathmandu",
			"time":            "12:00",
			"target_timezone": "UTC",
		}

		result, err := c.CallTool(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		require.Len(t, result.Content, 1)
		text, ok := mcp.AsTextContent(result.Content[0])
		require.True(t, ok)

		var got domain.TimeConversionResult
		require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
		assert.Equal(t, "-5.75h", got.TimeDifference)
		assert.Equal(t, domain.SameDay, got.DateChange)
		assert.Contains(t, got.Target.Datetime, "T06:15:00+00:00")
	})

	t.Run("tool error", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Name = "get_current_time"
		req.Params.Arguments = map[string]any{"timezone": "Invalid/Zone"}

		result, err := c.CallTool(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("protocol error", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Name = "get_weather"

		_, err := c.CallTool(ctx, req)
		assert.ErrorContains(t, err, "unknown tool: get_weather")
	})
}
