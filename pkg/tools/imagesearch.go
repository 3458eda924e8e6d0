package tools

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/serpimage/mcp/internal/config"
	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/protocol"
	"github.com/serpimage/mcp/pkg/transport"
)

const (
	defaultLimit = 5
	maxLimit     = 100
	maxPage      = 99
)

// Allowed values for the enumerated search parameters
var (
	aspectRatios = []string{"square", "tall", "wide", "extraWide"}
	imageSizes   = []string{"icon", "small", "medium", "large", "extraLarge"}
	imageColors  = []string{
		"red", "orange", "yellow", "green", "teal", "blue", "purple",
		"pink", "white", "gray", "black", "brown", "bw", "trans",
	}
	imageTypes      = []string{"face", "photo", "clipart", "lineart", "animated"}
	safeSearchModes = []string{"active", "off"}
	licenseFilters  = []string{"creativeCommons", "other"}
)

// SearchRequest is a fully validated image search invocation.
// Optional string fields are empty when undefined; Page is a pointer because
// page 0 is a legitimate value distinct from "not given".
type SearchRequest struct {
	Query        string
	Limit        int
	Location     string
	CountryCode  string
	LanguageCode string
	AspectRatio  string
	Size         string
	Color        string
	Type         string
	Page         *int
	SafeSearch   string
	License      string
}

// serpImageResult is one record in the endpoint's images_results array.
// Width and height are pointers so a missing dimension is distinguishable
// from zero.
type serpImageResult struct {
	Title          string `json:"title"`
	Source         string `json:"source"`
	Link           string `json:"link"`
	Thumbnail      string `json:"thumbnail"`
	Original       string `json:"original"`
	OriginalWidth  *int   `json:"original_width"`
	OriginalHeight *int   `json:"original_height"`
}

type serpResponse struct {
	Error         string            `json:"error"`
	ImagesResults []serpImageResult `json:"images_results"`
}

// ImageSearchTool returns the image search tool definition
func ImageSearchTool() protocol.Tool {
	return protocol.Tool{
		Name: "image_search",
		Description: `
		Searches Google Images for the given query and returns the top 'limit' results as text.
		For each result the title, source, thumbnail URL, full-size image URL and dimensions
		(where known) are returned. The full-size URL can be passed to the image_fetch tool
		to download the image itself.
		This tool should be used when:
		- the user asks to find a picture or image of something
		- the user asks what images exist for a topic
		- an image URL is needed for a subsequent download
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"query": {
					Type:        "string",
					Description: "The search term, for example 'Ozric Tentacles album cover'",
				},
				"limit": {
					Type:        "integer",
					Description: "The maximum number of results to return",
					Minimum:     protocol.IntPtr(1),
					Maximum:     protocol.IntPtr(maxLimit),
					Default:     defaultLimit,
				},
				"location": {
					Type:        "string",
					Description: "Location to originate the search from, for example 'Austin, Texas'",
				},
				"country_code": {
					Type:        "string",
					Description: "Two-letter country code for the search, for example 'us' or 'uk'",
				},
				"language_code": {
					Type:        "string",
					Description: "Two-letter language code for the search, for example 'en'",
				},
				"aspect_ratio": {
					Type:        "string",
					Description: "Restrict results to a particular aspect ratio",
					Enum:        aspectRatios,
				},
				"size": {
					Type:        "string",
					Description: "Restrict results to a particular image size",
					Enum:        imageSizes,
				},
				"color": {
					Type:        "string",
					Description: "Restrict results to a dominant color",
					Enum:        imageColors,
				},
				"type": {
					Type:        "string",
					Description: "Restrict results to a kind of image",
					Enum:        imageTypes,
				},
				"page": {
					Type:        "integer",
					Description: "Zero-based results page to request",
					Minimum:     protocol.IntPtr(0),
					Maximum:     protocol.IntPtr(maxPage),
				},
				"safe_search": {
					Type:        "string",
					Description: "Safe search filtering mode",
					Enum:        safeSearchModes,
				},
				"license": {
					Type:        "string",
					Description: "Restrict results by usage license",
					Enum:        licenseFilters,
				},
			},
			Required: []string{"query"},
		},
	}
}

// HandleImageSearchTool handles the image search tool invocation
func HandleImageSearchTool(params any) (any, error) {
	logger.Info("Handling image search tool invocation")

	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid parameters format")
	}

	req, err := parseSearchRequest(paramsMap)
	if err != nil {
		return nil, err
	}

	text, err := SearchAndFormat(req)
	if err != nil {
		return errorResult("Image search failed", err), nil
	}
	return protocol.NewTextResult(text), nil
}

// parseSearchRequest validates the raw arguments map into a SearchRequest.
// Every field is checked against its declared type, enum and bounds; nothing
// is inferred at runtime.
func parseSearchRequest(args map[string]any) (*SearchRequest, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query parameter is required and must be a string")
	}

	req := &SearchRequest{
		Query: strings.TrimSpace(query),
		Limit: defaultLimit,
	}

	if v, ok := args["limit"]; ok {
		n, err := intArg("limit", v)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > maxLimit {
			return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxLimit, n)
		}
		req.Limit = n
	}

	var err error
	if req.Location, err = stringArg("location", args); err != nil {
		return nil, err
	}
	if req.CountryCode, err = stringArg("country_code", args); err != nil {
		return nil, err
	}
	if req.LanguageCode, err = stringArg("language_code", args); err != nil {
		return nil, err
	}
	if req.AspectRatio, err = enumArg("aspect_ratio", args, aspectRatios); err != nil {
		return nil, err
	}
	if req.Size, err = enumArg("size", args, imageSizes); err != nil {
		return nil, err
	}
	if req.Color, err = enumArg("color", args, imageColors); err != nil {
		return nil, err
	}
	if req.Type, err = enumArg("type", args, imageTypes); err != nil {
		return nil, err
	}
	if req.SafeSearch, err = enumArg("safe_search", args, safeSearchModes); err != nil {
		return nil, err
	}
	if req.License, err = enumArg("license", args, licenseFilters); err != nil {
		return nil, err
	}

	if v, ok := args["page"]; ok {
		n, err := intArg("page", v)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > maxPage {
			return nil, fmt.Errorf("page must be between 0 and %d, got %d", maxPage, n)
		}
		req.Page = &n
	}

	return req, nil
}

func stringArg(name string, args map[string]any) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s, nil
}

func enumArg(name string, args map[string]any, allowed []string) (string, error) {
	s, err := stringArg(name, args)
	if err != nil || s == "" {
		return s, err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), s)
}

func intArg(name string, v any) (int, error) {
	// JSON numbers arrive as float64
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

// buildSearchParams maps a SearchRequest onto the endpoint's query string.
// Undefined optional fields are omitted entirely. The license filter is not a
// parameter of its own upstream: it travels inside the combined tbs search
// modifier ('il:cl' for Creative Commons, 'il:ol' for other licenses). The
// limit is a client-side display cap and is never sent.
func buildSearchParams(req *SearchRequest) url.Values {
	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("api_key", config.APIKey())
	params.Set("q", req.Query)

	if req.Location != "" {
		params.Set("location", req.Location)
	}
	if req.CountryCode != "" {
		params.Set("gl", req.CountryCode)
	}
	if req.LanguageCode != "" {
		params.Set("hl", req.LanguageCode)
	}
	if req.AspectRatio != "" {
		params.Set("imgar", req.AspectRatio)
	}
	if req.Size != "" {
		params.Set("imgsz", req.Size)
	}
	if req.Color != "" {
		params.Set("image_color", req.Color)
	}
	if req.Type != "" {
		params.Set("image_type", req.Type)
	}
	if req.Page != nil {
		params.Set("ijn", fmt.Sprintf("%d", *req.Page))
	}
	if req.SafeSearch != "" {
		params.Set("safe", req.SafeSearch)
	}
	switch req.License {
	case "creativeCommons":
		params.Set("tbs", "il:cl")
	case "other":
		params.Set("tbs", "il:ol")
	}

	return params
}

// SearchAndFormat runs the search and renders the result text. The returned
// error is already safe to show to the caller: the credential is redacted
// and HTTP failures carry their status code and text.
func SearchAndFormat(req *SearchRequest) (string, error) {
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}

	searchURL := fmt.Sprintf("%s?%s", config.SearchEndpoint, buildSearchParams(req).Encode())

	logger.Info("Performing image search for query", req.Query)
	body, err := transport.GetJSON(searchURL)
	if err != nil {
		return "", redactedError(err)
	}

	var resp serpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}

	// The endpoint reports application-level failures inside a 200 body
	if resp.Error != "" {
		return "", fmt.Errorf("search endpoint error: %s", resp.Error)
	}

	return formatResults(resp.ImagesResults, req.Limit, req.Query), nil
}

// formatResults renders up to limit results as numbered text blocks.
// The dimension line only appears when both width and height are known.
func formatResults(results []serpImageResult, limit int, query string) string {
	if len(results) == 0 {
		return "No image results found."
	}

	total := len(results)
	shown := limit
	if shown > total {
		shown = total
	}

	var blocks []string
	for i, r := range results[:shown] {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		source := r.Source
		if source == "" {
			source = "unknown"
		}
		thumbnail := r.Thumbnail
		if thumbnail == "" {
			thumbnail = "n/a"
		}
		original := r.Original
		if original == "" {
			original = "n/a"
		}

		lines := []string{
			fmt.Sprintf("%d. %s", i+1, title),
			fmt.Sprintf("   Source: %s (%s)", source, r.Link),
			fmt.Sprintf("   Thumbnail: %s", thumbnail),
			fmt.Sprintf("   Image: %s", original),
		}
		if r.OriginalWidth != nil && r.OriginalHeight != nil {
			lines = append(lines, fmt.Sprintf("   Dimensions: %d×%d", *r.OriginalWidth, *r.OriginalHeight))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	header := fmt.Sprintf("Found %d total results, showing top %d for %q", total, shown, query)
	return header + "\n\n" + strings.Join(blocks, "\n\n")
}
