package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/spf13/viper"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager from config files and the environment
func NewManager() (*Manager, error) {
	return newManager(viper.New(), "")
}

// NewManagerFromFile creates a configuration manager that reads an explicit config file
func NewManagerFromFile(path string) (*Manager, error) {
	return newManager(viper.New(), path)
}

func newManager(v *viper.Viper, configFile string) (*Manager, error) {
	m := &Manager{v: v}
	if err := m.loadConfig(configFile); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig(configFile string) error {
	v := m.v

	// Set configuration file name and paths
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/niramay-pgx-server/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("NIRAMAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials are also accepted under their conventional unprefixed names
	if err := bindEnvAliases(v); err != nil {
		return err
	}

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.Gemini.APIKeys = splitList(config.Gemini.APIKeys)
	config.Gemini.Models = splitList(config.Gemini.Models)
	config.Gemini.APIKey = strings.TrimSpace(config.Gemini.APIKey)
	config.Pinecone.APIKey = strings.TrimSpace(config.Pinecone.APIKey)

	m.config = config
	return nil
}

func bindEnvAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"gemini.api_keys":     {"NIRAMAY_GEMINI_API_KEYS", "GEMINI_API_KEYS"},
		"gemini.api_key":      {"NIRAMAY_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"pinecone.api_key":    {"NIRAMAY_PINECONE_API_KEY", "PINECONE_API_KEY"},
		"pinecone.index_host": {"NIRAMAY_PINECONE_INDEX_HOST", "PINECONE_INDEX_HOST"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	// Zero leaves the analysis batch without a deadline; write_timeout still bounds the connection
	v.SetDefault("server.request_timeout", "0s")

	// Gemini defaults
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_keys", []string{})
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.models", []string{
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-flash-latest",
		"gemini-flash-lite-latest",
		"gemini-3-flash-preview",
		"gemini-2.5-flash-lite-preview-09-2025",
	})
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("gemini.embedding_dimensions", 768)
	v.SetDefault("gemini.min_response_length", 20)
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("gemini.rate_limit", 0)

	// Pinecone defaults
	v.SetDefault("pinecone.index_host", "")
	v.SetDefault("pinecone.index_name", "niramay-cpic")
	v.SetDefault("pinecone.api_key", "")
	v.SetDefault("pinecone.timeout", "30s")
	v.SetDefault("pinecone.max_retries", 3)
	v.SetDefault("pinecone.retry_delay", "500ms")

	// Orchestrator defaults
	v.SetDefault("orchestrator.workers", 32)

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_size", 256)
	v.SetDefault("cache.memory_ttl", "30m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "niramay-pgx-server")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetGeminiConfig returns generation backend configuration
func (m *Manager) GetGeminiConfig() *domain.GeminiConfig {
	return &m.config.Gemini
}

// GetPineconeConfig returns vector index configuration
func (m *Manager) GetPineconeConfig() *domain.PineconeConfig {
	return &m.config.Pinecone
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate backend configuration
	if len(config.Gemini.Credentials()) == 0 {
		return fmt.Errorf("at least one Gemini API key is required (GEMINI_API_KEYS or GEMINI_API_KEY)")
	}
	if len(config.Gemini.Models) == 0 {
		return fmt.Errorf("at least one Gemini model is required")
	}
	if _, err := url.ParseRequestURI(config.Gemini.BaseURL); err != nil {
		return fmt.Errorf("invalid Gemini base URL: %s", config.Gemini.BaseURL)
	}
	if config.Gemini.MinResponseLength < 0 {
		return fmt.Errorf("minimum response length must not be negative: %d", config.Gemini.MinResponseLength)
	}
	if config.Pinecone.IndexName == "" {
		return fmt.Errorf("Pinecone index name is required")
	}
	if config.Pinecone.MaxRetries <= 0 {
		return fmt.Errorf("Pinecone max retries must be positive: %d", config.Pinecone.MaxRetries)
	}
	if config.Orchestrator.Workers <= 0 {
		return fmt.Errorf("orchestrator workers must be positive: %d", config.Orchestrator.Workers)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

// splitList flattens comma-separated entries and drops blanks
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
