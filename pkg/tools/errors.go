package tools

import (
	"fmt"
	"strings"

	"github.com/serpimage/mcp/internal/config"
	"github.com/serpimage/mcp/pkg/protocol"
)

// Transport failures, in-body endpoint errors and filesystem errors all reach
// the caller through this one shape: a text message with the error flag set.

// errorResult renders a failure as an error-flagged tool result
func errorResult(context string, err error) *protocol.ToolResult {
	return protocol.NewErrorResult(fmt.Sprintf("%s: %s", context, redact(err.Error())))
}

// redactedError scrubs the credential out of an error before it can travel.
// Transport errors embed the full request URL, which carries the api_key.
func redactedError(err error) error {
	return fmt.Errorf("%s", redact(err.Error()))
}

func redact(msg string) string {
	if key := config.APIKey(); key != "" {
		msg = strings.ReplaceAll(msg, key, "***")
	}
	return msg
}
