package tools

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/serpimage/mcp/internal/config"
	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/protocol"
	"github.com/serpimage/mcp/pkg/transport"
)

// defaultMediaType is assumed when the server sends no Content-Type
const defaultMediaType = "image/jpeg"

// defaultBaseName is used when the URL has no usable path component
const defaultBaseName = "image"

// Recognized image file extensions, checked case-insensitively
var imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "tiff"}

// ImageFetchTool returns the image fetch tool definition
func ImageFetchTool() protocol.Tool {
	return protocol.Tool{
		Name: "image_fetch",
		Description: `
		Downloads the image at the given URL, saves it to disk and returns it inline.
		If no save_path is given the image is written into a temporary directory under a
		name derived from the URL. Outputs the image itself followed by a confirmation
		with the saved location, size and media type.
		This tool should be used when the user asks to download, save or view an image,
		typically with a URL obtained from the image_search tool.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"url": {
					Type:        "string",
					Description: "The URL of the image to download",
				},
				"save_path": {
					Type:        "string",
					Description: "Absolute path the image should be saved to. Used verbatim; the caller is responsible for it being writable.",
				},
			},
			Required: []string{"url"},
		},
	}
}

// HandleImageFetchTool handles the image fetch tool invocation.
// Every failure, network or filesystem, comes back as an error-flagged text
// result rather than a protocol fault.
func HandleImageFetchTool(params any) (any, error) {
	logger.Info("Handling image fetch tool invocation")

	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid parameters format")
	}

	imageURL, ok := paramsMap["url"].(string)
	if !ok || strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("url parameter is required and must be a string")
	}
	imageURL = strings.TrimSpace(imageURL)

	savePath := ""
	if v, ok := paramsMap["save_path"].(string); ok {
		savePath = strings.TrimSpace(v)
	}

	return FetchImage(imageURL, savePath), nil
}

// FetchImage downloads the image, writes it to disk and builds the tool
// result: the image bytes inline, then a confirmation line.
func FetchImage(imageURL, savePath string) *protocol.ToolResult {
	data, contentType, err := transport.GetImage(imageURL)
	if err != nil {
		return errorResult("Image fetch failed", err)
	}
	if contentType == "" {
		contentType = defaultMediaType
	}

	target := savePath
	if target == "" {
		// Derived names always land under the image directory
		target = filepath.Join(config.ImageDir, deriveFileName(imageURL, contentType))
		if err := os.MkdirAll(config.ImageDir, 0755); err != nil {
			return errorResult("Image fetch failed", err)
		}
	}

	// Overwrites any existing file at the path
	if err := os.WriteFile(target, data, 0644); err != nil {
		return errorResult("Image fetch failed", err)
	}

	mediaType := normalizeMediaType(contentType)
	logger.Info("Saved image to", target, "with size:", len(data), "bytes")

	return &protocol.ToolResult{
		Content: []protocol.Content{
			protocol.NewImageContent(base64.StdEncoding.EncodeToString(data), mediaType),
			{Type: "text", Text: fmt.Sprintf("Saved image to %s (%d bytes, %s)", target, len(data), mediaType)},
		},
	}
}

// deriveFileName produces a filename from the URL's path component. When the
// name carries no recognized image extension one is appended, inferred from
// the content type.
func deriveFileName(rawURL, contentType string) string {
	name := defaultBaseName
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "" && base != "." && base != "/" {
			name = base
		}
	}

	if !hasImageExtension(name) {
		name = name + "." + extensionForContentType(contentType)
	}
	return name
}

// hasImageExtension reports whether the filename ends in a recognized image
// extension, case-insensitively
func hasImageExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// extensionForContentType infers a file extension from the content type.
// Anything unrecognized is treated as jpeg.
func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

// normalizeMediaType strips any parameter suffix from a content type,
// leaving the bare type/subtype
func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return defaultMediaType
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}
