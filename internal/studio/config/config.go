package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Build modes
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// DevelopmentAPIURL is the API address of a locally running server
const DevelopmentAPIURL = "http://localhost:5000/api"

// ProductionAPIURL is relative so a deployed client talks to the origin that served it
const ProductionAPIURL = "/api"

// StudioConfig holds client configuration
type StudioConfig struct {
	Mode string `env:"STUDIO_MODE" envDefault:"development"`
	// APIURL overrides the mode-derived base URL when set
	APIURL string `env:"STUDIO_API_URL"`
}

// LoadConfig reads the client configuration from the environment
func LoadConfig() (*StudioConfig, error) {
	cfg := &StudioConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load studio configuration: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode != ModeDevelopment && cfg.Mode != ModeProduction {
		return nil, fmt.Errorf("STUDIO_MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, cfg.Mode)
	}
	return cfg, nil
}

// BaseURL returns the API base URL without a trailing slash
func (c *StudioConfig) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return APIBaseURL(c.Mode)
}

// APIBaseURL maps a build mode to the API base URL
func APIBaseURL(mode string) string {
	if mode == ModeProduction {
		return ProductionAPIURL
	}
	return DevelopmentAPIURL
}
