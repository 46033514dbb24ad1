package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Pinecone     PineconeConfig     `mapstructure:"pinecone"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	MCP          MCPConfig          `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GeminiConfig represents the embedding/generation backend configuration
type GeminiConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKeys             []string      `mapstructure:"api_keys"`
	APIKey              string        `mapstructure:"api_key"`
	Models              []string      `mapstructure:"models"`
	EmbeddingModel      string        `mapstructure:"embedding_model"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	MinResponseLength   int           `mapstructure:"min_response_length"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RateLimit           int           `mapstructure:"rate_limit"`
}

// Credentials returns the configured API keys, single key last, without blanks or duplicates
func (g GeminiConfig) Credentials() []string {
	seen := make(map[string]struct{}, len(g.APIKeys)+1)
	keys := make([]string, 0, len(g.APIKeys)+1)
	for _, k := range append(append([]string{}, g.APIKeys...), g.APIKey) {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// PineconeConfig represents the vector index configuration
type PineconeConfig struct {
	IndexHost  string        `mapstructure:"index_host"`
	IndexName  string        `mapstructure:"index_name"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// OrchestratorConfig represents the explanation fan-out configuration
type OrchestratorConfig struct {
	Workers int `mapstructure:"workers"`
}

// CacheConfig represents retrieval context cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MemorySize  int           `mapstructure:"memory_size"`
	MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
