package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration, loaded once at startup and
// passed by reference into every component.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port int    `envconfig:"APP_PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	Supabase SupabaseConfig
	Jira     JiraConfig

	// JWTSecret enables local HS256 verification of provider-issued tokens.
	// When empty, every bearer token is verified against the provider.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// TokenSealKey seals stored tracker API tokens at rest. 32 bytes,
	// hex-encoded (64 chars). Optional; tokens are stored plain without it.
	TokenSealKey string `envconfig:"TOKEN_SEAL_KEY"`

	FrontendURL    string   `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	TrustedOrigins []string `envconfig:"CORS_TRUSTED_ORIGINS" default:"*"`
}

// SupabaseConfig locates the identity/persistence provider.
type SupabaseConfig struct {
	URL            string `envconfig:"SUPABASE_URL" required:"true"`
	PublishableKey string `envconfig:"SUPABASE_PUBLISHABLE_KEY" required:"true"`
	ServiceRoleKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
}

// JiraConfig bounds the outbound issue-tracker call.
type JiraConfig struct {
	Timeout time.Duration `envconfig:"JIRA_TIMEOUT" default:"30s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Env] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}
	if !strings.HasPrefix(c.Supabase.URL, "http://") && !strings.HasPrefix(c.Supabase.URL, "https://") {
		return fmt.Errorf("SUPABASE_URL must be an http(s) URL")
	}
	if c.Jira.Timeout <= 0 {
		return fmt.Errorf("JIRA_TIMEOUT must be positive")
	}
	if c.TokenSealKey != "" && len(c.TokenSealKey) != 64 {
		return fmt.Errorf("TOKEN_SEAL_KEY must be 64 hex characters (got %d)", len(c.TokenSealKey))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the listen address for the HTTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CORSOrigins returns the trimmed list of trusted origins.
func (c *Config) CORSOrigins() []string {
	origins := make([]string, 0, len(c.TrustedOrigins))
	for _, origin := range c.TrustedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
