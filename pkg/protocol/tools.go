package protocol

// ToolProperty describes a single parameter of a tool's input schema.
// Enum, bounds and default are optional and only serialized when set so
// that simple string parameters stay compact on the wire.
type ToolProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

type InputSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]ToolProperty `json:"properties,omitempty"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// Tool represents a callable tool exposed over the protocol
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolsResponse represents the response to a tools/list request
type ToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// IntPtr is a convenience for setting schema bounds inline
func IntPtr(v int) *int {
	return &v
}

// Content is one block of content in a tools/call result.
// Type is "text" (Text set) or "image" (Data holds base64 bytes and
// MimeType the media type).
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ToolResult is the result payload of a tools/call request
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewTextResult wraps plain text in a successful tool result
func NewTextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// NewErrorResult wraps a failure message in an error flagged tool result.
// Every tool failure, whatever its origin, is rendered through this one shape.
func NewErrorResult(message string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: message}},
		IsError: true,
	}
}

// NewImageContent builds an inline image block from base64 encoded bytes
func NewImageContent(data, mimeType string) Content {
	return Content{Type: "image", Data: data, MimeType: mimeType}
}
