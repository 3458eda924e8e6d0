package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/serpimage/mcp/pkg/protocol"
	"github.com/serpimage/mcp/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *Server {
	return InitInstance(transport.NewTransport(strings.NewReader(""), &bytes.Buffer{}))
}

func TestRegistersBothImageTools(t *testing.T) {
	s := testServer()

	var names []string
	for _, tool := range s.GetTools() {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"image_search", "image_fetch"}, names)
}

func TestHandleInitialize(t *testing.T) {
	s := testServer()

	req, err := protocol.NewJsonRpcRequest("initialize", map[string]any{"protocolVersion": "2025-03-26"}, 0)
	require.NoError(t, err)

	resp := s.handleRequest(req)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
		Capabilities map[string]any `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "2025-03-26", result.ProtocolVersion)
	assert.Equal(t, ServerName, result.ServerInfo.Name)
	assert.Contains(t, result.Capabilities, "tools")
}

func TestHandleToolsList(t *testing.T) {
	s := testServer()

	req, err := protocol.NewJsonRpcRequest("tools/list", nil, 1)
	require.NoError(t, err)

	resp := s.handleRequest(req)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.ToolsResponse
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 2)

	// Each tool publishes a full input schema
	for _, tool := range result.Tools {
		assert.Equal(t, "object", tool.InputSchema.Type)
		assert.NotEmpty(t, tool.InputSchema.Required)
		assert.NotEmpty(t, tool.InputSchema.Properties)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	s := testServer()

	req, err := protocol.NewJsonRpcNotification("notifications/initialized", nil)
	require.NoError(t, err)
	assert.Nil(t, s.handleRequest(req))
}

func TestUnknownMethod(t *testing.T) {
	s := testServer()

	req, err := protocol.NewJsonRpcRequest("bogus/method", nil, 2)
	require.NoError(t, err)

	resp := s.handleRequest(req)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrMethodNotFound, resp.Error.Code)
}

func TestToolsCallUnknownTool(t *testing.T) {
	s := testServer()

	req, err := protocol.NewJsonRpcRequest("tools/call", map[string]any{
		"name":      "no_such_tool",
		"arguments": map[string]any{},
	}, 3)
	require.NoError(t, err)

	resp := s.handleRequest(req)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "no_such_tool")
}
