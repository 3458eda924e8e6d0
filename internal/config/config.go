package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// APIKeyEnvVar is the environment variable holding the SerpAPI credential
const APIKeyEnvVar = "SERPAPI_API_KEY"

// SearchEndpoint is the SerpAPI search endpoint. A variable rather than a
// constant so tests can point it at a local fake server.
var SearchEndpoint = "https://serpapi.com/search.json"

// ImageDir is where fetched images land when the caller gives no save path
var ImageDir = filepath.Join(os.TempDir(), "mcp-images")

var apiKey string

// Load reads the required credential from the environment. Must be called
// once at startup, before any tool is registered; a missing key is fatal.
func Load() error {
	key := os.Getenv(APIKeyEnvVar)
	if key == "" {
		return fmt.Errorf("%s environment variable is not set", APIKeyEnvVar)
	}
	apiKey = key
	return nil
}

// APIKey returns the loaded SerpAPI credential
func APIKey() string {
	return apiKey
}

// SetAPIKey overrides the credential. For tests.
func SetAPIKey(key string) {
	apiKey = key
}
