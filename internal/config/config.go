// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the pipeline needs: the two search API secrets,
// the destination platform token, and local run settings. It is constructed
// once at startup and passed explicitly to the adapters.
type Config struct {
	// FlicToken authenticates against the Socialverse upload API.
	FlicToken string
	// RapidAPIKey and RapidAPIHost authenticate against the hashtag
	// search API; the host doubles as the request hostname.
	RapidAPIKey  string
	RapidAPIHost string

	// DataDir is the base directory for run artifacts.
	DataDir string
	// CategoryID is attached to every created post.
	CategoryID int
}

// FromEnv builds a Config from environment variables and validates it.
// Missing secrets fail here, before any network call is made.
func FromEnv() (*Config, error) {
	cfg := &Config{
		FlicToken:    os.Getenv("FLIC_TOKEN"),
		RapidAPIKey:  os.Getenv("RAPID_API_KEY"),
		RapidAPIHost: os.Getenv("RAPID_API_HOST"),
		DataDir:      "./data",
		CategoryID:   25,
	}

	if v := os.Getenv("TAGSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TAGSYNC_CATEGORY_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("TAGSYNC_CATEGORY_ID must be an integer: %w", err)
		}
		cfg.CategoryID = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required values are present.
func (c *Config) Validate() error {
	if c.FlicToken == "" {
		return fmt.Errorf("FLIC_TOKEN environment variable not set")
	}
	if c.RapidAPIKey == "" {
		return fmt.Errorf("RAPID_API_KEY environment variable not set")
	}
	if c.RapidAPIHost == "" {
		return fmt.Errorf("RAPID_API_HOST environment variable not set")
	}
	if c.CategoryID <= 0 {
		return fmt.Errorf("category ID must be positive, got %d", c.CategoryID)
	}
	return nil
}
