package tools

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/serpimage/mcp/internal/config"
	"github.com/serpimage/mcp/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestBuildSearchParamsOmitsUndefinedFields(t *testing.T) {
	config.SetAPIKey("test-key")

	params := buildSearchParams(&SearchRequest{Query: "cats", Limit: 3})

	assert.Equal(t, "google_images", params.Get("engine"))
	assert.Equal(t, "test-key", params.Get("api_key"))
	assert.Equal(t, "cats", params.Get("q"))

	// Undefined optionals must not appear, not even as empty values
	for _, key := range []string{"location", "gl", "hl", "imgar", "imgsz", "image_color", "image_type", "ijn", "safe", "tbs"} {
		_, present := params[key]
		assert.False(t, present, "unexpected parameter %s", key)
	}

	// The display cap is client-side only
	_, present := params["limit"]
	assert.False(t, present)
}

func TestBuildSearchParamsIncludesDefinedFields(t *testing.T) {
	config.SetAPIKey("test-key")

	req := &SearchRequest{
		Query:        "sunset",
		Limit:        10,
		Location:     "Austin, Texas",
		CountryCode:  "us",
		LanguageCode: "en",
		AspectRatio:  "wide",
		Size:         "large",
		Color:        "teal",
		Type:         "photo",
		Page:         intp(0),
		SafeSearch:   "active",
	}
	params := buildSearchParams(req)

	assert.Equal(t, "Austin, Texas", params.Get("location"))
	assert.Equal(t, "us", params.Get("gl"))
	assert.Equal(t, "en", params.Get("hl"))
	assert.Equal(t, "wide", params.Get("imgar"))
	assert.Equal(t, "large", params.Get("imgsz"))
	assert.Equal(t, "teal", params.Get("image_color"))
	assert.Equal(t, "photo", params.Get("image_type"))
	assert.Equal(t, "0", params.Get("ijn"))
	assert.Equal(t, "active", params.Get("safe"))
}

func TestBuildSearchParamsLicenseModifier(t *testing.T) {
	config.SetAPIKey("test-key")

	params := buildSearchParams(&SearchRequest{Query: "cats", License: "creativeCommons"})
	assert.Equal(t, "il:cl", params.Get("tbs"))

	params = buildSearchParams(&SearchRequest{Query: "cats", License: "other"})
	assert.Equal(t, "il:ol", params.Get("tbs"))

	params = buildSearchParams(&SearchRequest{Query: "cats"})
	_, present := params["tbs"]
	assert.False(t, present)
}

func TestParseSearchRequestValidation(t *testing.T) {
	_, err := parseSearchRequest(map[string]any{})
	assert.Error(t, err)

	_, err = parseSearchRequest(map[string]any{"query": "cats", "limit": float64(0)})
	assert.Error(t, err)

	_, err = parseSearchRequest(map[string]any{"query": "cats", "limit": float64(101)})
	assert.Error(t, err)

	_, err = parseSearchRequest(map[string]any{"query": "cats", "color": "mauve"})
	assert.Error(t, err)

	_, err = parseSearchRequest(map[string]any{"query": "cats", "page": float64(100)})
	assert.Error(t, err)

	req, err := parseSearchRequest(map[string]any{
		"query": "cats", "limit": float64(7), "page": float64(0), "license": "other",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, req.Limit)
	require.NotNil(t, req.Page)
	assert.Equal(t, 0, *req.Page)
	assert.Equal(t, "other", req.License)

	// Defaults apply when limit is absent
	req, err = parseSearchRequest(map[string]any{"query": "cats"})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, req.Limit)
	assert.Nil(t, req.Page)
}

func TestFormatResultsCountsAndHeader(t *testing.T) {
	var results []serpImageResult
	for i := 0; i < 10; i++ {
		results = append(results, serpImageResult{
			Title:     fmt.Sprintf("Cat %d", i+1),
			Source:    "example.com",
			Link:      "https://example.com/page",
			Thumbnail: "https://example.com/t.jpg",
			Original:  "https://example.com/o.jpg",
		})
	}

	out := formatResults(results, 3, "cats")
	assert.Contains(t, out, "Found 10 total results, showing top 3")
	assert.Contains(t, out, `"cats"`)
	assert.Contains(t, out, "1. Cat 1")
	assert.Contains(t, out, "3. Cat 3")
	assert.NotContains(t, out, "4. Cat 4")

	// Fewer results than the limit
	out = formatResults(results[:2], 5, "cats")
	assert.Contains(t, out, "Found 2 total results, showing top 2")
	assert.Contains(t, out, "2. Cat 2")
}

func TestFormatResultsDimensionLine(t *testing.T) {
	with := serpImageResult{Title: "A", OriginalWidth: intp(1024), OriginalHeight: intp(768)}
	widthOnly := serpImageResult{Title: "B", OriginalWidth: intp(640)}
	heightOnly := serpImageResult{Title: "C", OriginalHeight: intp(480)}

	out := formatResults([]serpImageResult{with, widthOnly, heightOnly}, 3, "q")
	assert.Contains(t, out, "Dimensions: 1024×768")
	assert.Equal(t, 1, strings.Count(out, "Dimensions:"))
}

func TestFormatResultsFallbacks(t *testing.T) {
	out := formatResults([]serpImageResult{{}}, 1, "q")
	assert.Contains(t, out, "1. Untitled")
	assert.Contains(t, out, "Source: unknown")
	assert.Contains(t, out, "Thumbnail: n/a")
	assert.Contains(t, out, "Image: n/a")
	assert.NotContains(t, out, "Dimensions:")
}

func TestFormatResultsEmpty(t *testing.T) {
	out := formatResults(nil, 5, "cats")
	assert.Equal(t, "No image results found.", out)
}

func TestHandleImageSearchToolEndToEnd(t *testing.T) {
	config.SetAPIKey("test-key")

	var body strings.Builder
	body.WriteString(`{"images_results":[`)
	for i := 0; i < 10; i++ {
		if i > 0 {
			body.WriteString(",")
		}
		body.WriteString(fmt.Sprintf(
			`{"title":"Cat %d","source":"example.com","link":"https://example.com/p%d","thumbnail":"https://example.com/t%d.jpg","original":"https://example.com/o%d.jpg","original_width":800,"original_height":600}`,
			i+1, i+1, i+1, i+1))
	}
	body.WriteString(`]}`)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cats", r.URL.Query().Get("q"))
		assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body.String())
	}))
	defer ts.Close()

	orig := config.SearchEndpoint
	config.SearchEndpoint = ts.URL
	defer func() { config.SearchEndpoint = orig }()

	res, err := HandleImageSearchTool(map[string]interface{}{"query": "cats", "limit": float64(3)})
	require.NoError(t, err)

	result, ok := res.(*protocol.ToolResult)
	require.True(t, ok)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "Found 10 total results, showing top 3")
	assert.Equal(t, 3, strings.Count(result.Content[0].Text, "Dimensions: 800×600"))
}

func TestHandleImageSearchToolEmptyResults(t *testing.T) {
	config.SetAPIKey("test-key")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"images_results":[]}`)
	}))
	defer ts.Close()

	orig := config.SearchEndpoint
	config.SearchEndpoint = ts.URL
	defer func() { config.SearchEndpoint = orig }()

	res, err := HandleImageSearchTool(map[string]interface{}{"query": "xyzzy"})
	require.NoError(t, err)

	result := res.(*protocol.ToolResult)
	assert.False(t, result.IsError)
	assert.Equal(t, "No image results found.", result.Content[0].Text)
}

func TestHandleImageSearchToolEndpointFailures(t *testing.T) {
	config.SetAPIKey("test-key")

	// Non-2xx status
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	orig := config.SearchEndpoint
	config.SearchEndpoint = ts.URL
	defer func() { config.SearchEndpoint = orig }()

	res, err := HandleImageSearchTool(map[string]interface{}{"query": "cats"})
	require.NoError(t, err)
	result := res.(*protocol.ToolResult)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "403")
	ts.Close()

	// Error embedded in a 200 body
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":"Your searches for the month are exhausted."}`)
	}))
	config.SearchEndpoint = ts.URL

	res, err = HandleImageSearchTool(map[string]interface{}{"query": "cats"})
	require.NoError(t, err)
	result = res.(*protocol.ToolResult)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Your searches for the month are exhausted.")
	ts.Close()
}

func TestSearchErrorsNeverLeakCredential(t *testing.T) {
	config.SetAPIKey("super-secret-key")
	defer config.SetAPIKey("test-key")

	orig := config.SearchEndpoint
	// Nothing listens here, so the transport error embeds the request URL
	config.SearchEndpoint = "http://127.0.0.1:1/search.json"
	defer func() { config.SearchEndpoint = orig }()

	_, err := SearchAndFormat(&SearchRequest{Query: "cats", Limit: 1})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
}
