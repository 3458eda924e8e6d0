package processor

import (
	"encoding/json"
	"fmt"

	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/tools"
)

// One-shot request processing for CLI invocation: a JSON search request in,
// the formatted result text out, no MCP session involved.

// SearchCLIRequest represents a one-shot search request
type SearchCLIRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// SearchCLIResponse represents a one-shot search response
type SearchCLIResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Text      string `json:"text"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// createErrorResponse creates an error response
func createErrorResponse(code, message string) ([]byte, error) {
	var response ErrorResponse
	response.Error.Code = code
	response.Error.Message = message

	return json.MarshalIndent(response, "", "  ")
}

// ProcessRequest processes a one-shot search request and returns a response
func ProcessRequest(input []byte) ([]byte, error) {
	var request SearchCLIRequest
	if err := json.Unmarshal(input, &request); err != nil {
		logger.Error("Failed to parse input JSON", err)
		return createErrorResponse("invalid_request", fmt.Sprintf("Invalid JSON: %v", err))
	}

	if request.Query == "" {
		return createErrorResponse("invalid_request", "query is required")
	}

	logger.Info("Processing search request", request.Query)

	text, err := tools.SearchAndFormat(&tools.SearchRequest{
		Query: request.Query,
		Limit: request.Limit,
	})
	if err != nil {
		logger.Error("Search failed", err)
		return createErrorResponse("search_error", err.Error())
	}

	response := SearchCLIResponse{
		RequestID: request.RequestID,
		Text:      text,
	}

	jsonResult, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal response to JSON", err)
		return createErrorResponse("internal_error", "Failed to create response")
	}

	return jsonResult, nil
}
