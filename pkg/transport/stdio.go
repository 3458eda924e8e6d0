package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/protocol"
)

// StdioTransport implements communication over standard input/output
type StdioTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(os.Stdin),
		writer: bufio.NewWriter(os.Stdout),
	}
}

// NewTransport creates a stdio transport over the given reader and writer.
// Used by tests that want to drive the transport without touching the
// process's real stdin/stdout.
func NewTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// ReadRequest reads a JSON-RPC request from stdin
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	logger.Debug("Waiting for request on stdin...")

	// Read one entire JSON object or array off the stream.
	// Braces inside string literals must not affect the depth count.
	var requestData []byte
	var depth int
	var inString bool
	var escapeNext bool

	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				logger.Info("Received EOF on stdin, client disconnected")
				return nil, err
			}
			logger.Error("Error reading from stdin:", err)
			return nil, err
		}

		requestData = append(requestData, b)

		// Track string literals to avoid counting braces inside strings
		if !escapeNext && b == '"' {
			inString = !inString
		}

		// Track escape sequences inside strings
		if inString && b == '\\' {
			escapeNext = !escapeNext
		} else {
			escapeNext = false
		}

		// Only count braces when not inside a string
		if !inString {
			if b == '{' {
				depth++
			} else if b == '}' {
				depth--
				// If we've closed the outermost brace, we're done
				if depth == 0 {
					break
				}
			}
		}

		// Handle array-based requests
		if !inString && depth == 0 && b == ']' {
			break
		}

		// Initialize depth when we find the first opening bracket
		if depth == 0 && !inString && b == '[' {
			depth = 1
		}
	}

	// Trim any whitespace
	requestStr := strings.TrimSpace(string(requestData))
	logger.Debug("Received raw request:", requestStr)

	// Parse the JSON-RPC request
	request, err := protocol.ParseJsonRpcRequest([]byte(requestStr))
	if err != nil {
		logger.Error("Failed to parse JSON-RPC request:", err)
		return nil, err
	}

	return request, nil
}

// WriteResponse writes a JSON-RPC response to stdout
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}

	// Newline delimits responses on the stream
	responseBytes = append(responseBytes, '\n')

	logger.Debug("Sending response:", string(responseBytes))

	// Write the response to stdout
	if _, err := t.writer.Write(responseBytes); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}

	// Flush to ensure the response is sent
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}

	return nil
}
