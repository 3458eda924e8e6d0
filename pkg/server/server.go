package server

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/protocol"
	"github.com/serpimage/mcp/pkg/tools"
	"github.com/serpimage/mcp/pkg/transport"
)

// ServerName and ServerVersion are reported in the initialize handshake
const (
	ServerName    = "serpimage"
	ServerVersion = "1.0.0"
)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	handlers  map[string]HandlerFunc
	tools     []protocol.Tool
}

// HandlerFunc is a function that handles an MCP request
type HandlerFunc func(params interface{}) (interface{}, error)

// Singleton instance
var (
	instance *Server
	once     sync.Once
	mu       sync.Mutex
)

// GetInstance returns the singleton instance of the Server
func GetInstance() *Server {
	if instance == nil {
		instance = InitInstance(transport.NewStdioTransport())
	}
	return instance
}

// InitInstance initializes the singleton instance of the Server with the specified transport
func InitInstance(t transport.Transport) *Server {
	once.Do(func() {
		instance = &Server{
			transport: t,
			handlers:  make(map[string]HandlerFunc),
			tools:     []protocol.Tool{},
		}
		instance.RegisterDefaultTools()
	})
	return instance
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	mu.Lock()
	defer mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	mu.Lock()
	defer mu.Unlock()
	return s.tools
}

// RegisterDefaultTools registers the image tools and the built-in protocol handlers
func (s *Server) RegisterDefaultTools() {
	logger.Info("Registering default tools...")

	s.RegisterTool(tools.ImageSearchTool(), tools.HandleImageSearchTool)
	s.RegisterTool(tools.ImageFetchTool(), tools.HandleImageFetchTool)

	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
}

// Start starts the server and begins processing requests
func (s *Server) Start() error {
	logger.Info("Starting MCP server")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start processing in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	// Wait for either an error or a signal
	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
		return nil
	}
}

// ProcessRequests continuously processes incoming requests
func (s *Server) ProcessRequests() error {
	for {
		// Read a request
		req, err := s.transport.ReadRequest()
		if err != nil {
			return err
		}

		// Process the request
		// A nil response means no response is required (notifications)
		resp := s.handleRequest(req)
		if resp == nil {
			continue
		}

		// Send the response
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// handleRequest processes a request and returns a response
func (s *Server) handleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)

	// Handle notifications (no response required)
	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	// Create a base response
	resp := &protocol.JsonRpcResponse{
		JsonRPC: protocol.JsonRpcVersion,
		ID:      req.ID,
	}

	handler := s.handlers[req.Method]
	if handler == nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
		return resp
	}

	// Execute the handler
	result, err := handler(req.Params)

	if err == nil && result == nil {
		return nil
	}

	if err != nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrToolExecutionFailed,
			Message: err.Error(),
		}
		return resp
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrInternal,
			Message: "Failed to marshal result: " + err.Error(),
		}
		return resp
	}
	resp.Result = resultBytes

	return resp
}

// handleToolsList handles the tools/list method
func (s *Server) handleToolsList(params interface{}) (interface{}, error) {
	logger.Info("Handling tools/list request")

	return protocol.ToolsResponse{
		Tools: s.GetTools(),
	}, nil
}

// handleInitialize handles the initialize method
func (s *Server) handleInitialize(params interface{}) (interface{}, error) {
	logger.Info("Handling initialize request with", len(s.tools), "tools registered")

	// Echo the client's protocol version where given
	requestedProtocolVersion := "2024-11-05"

	var paramsMap map[string]interface{}
	if params != nil {
		if jsonBytes, ok := params.(json.RawMessage); ok {
			json.Unmarshal(jsonBytes, &paramsMap)
		} else if directMap, ok := params.(map[string]interface{}); ok {
			paramsMap = directMap
		}

		if version, exists := paramsMap["protocolVersion"].(string); exists {
			requestedProtocolVersion = version
			logger.Info("Using requested protocol version:", requestedProtocolVersion)
		}
	}

	capabilities := map[string]any{}
	if len(s.tools) > 0 {
		capabilities["tools"] = map[string]any{
			"listChanged": true,
		}
	}

	initializeResponse := struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}{
		ProtocolVersion: requestedProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo: struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}

	return initializeResponse, nil
}

// handleInitialized handles the initialized notification
// 'initialized' does not require a response
func (s *Server) handleInitialized(params interface{}) (interface{}, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

func (s *Server) handleToolsCall(params any) (any, error) {
	logger.Info("Handling tools/call request")

	type ToolCallParams struct {
		Arguments map[string]any `json:"arguments"`
		Name      string         `json:"name"`
	}

	var toolCallParams ToolCallParams

	// Convert params to JSON and then unmarshal it
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %v", err)
	}

	if err := json.Unmarshal(paramsBytes, &toolCallParams); err != nil {
		return nil, fmt.Errorf("invalid tools/call parameters: %v", err)
	}

	logger.Info("Tool call requested for:", toolCallParams.Name)

	handler := s.handlers[toolCallParams.Name]
	if handler == nil {
		return nil, fmt.Errorf("tool not found: %s", toolCallParams.Name)
	}

	// Execute the tool with the provided arguments
	result, err := handler(toolCallParams.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %v", err)
	}

	return result, nil
}
