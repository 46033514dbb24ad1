// Package setup registers the MCP server with a desktop MCP client by editing
// the client's JSON configuration file.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// ServerName is the key the server is registered under
const ServerName = "niramay-pgx"

// PassthroughEnv lists the variables copied into the registration when set,
// so the client launches the server with working credentials.
var PassthroughEnv = []string{
	"NIRAMAY_GEMINI_API_KEYS",
	"NIRAMAY_GEMINI_API_KEY",
	"NIRAMAY_PINECONE_API_KEY",
	"NIRAMAY_PINECONE_INDEX_HOST",
	"NIRAMAY_PINECONE_INDEX_NAME",
	"NIRAMAY_CACHE_REDIS_URL",
}

// DesktopConfig represents the client configuration file structure.
// Unknown top-level keys are preserved on save.
type DesktopConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry represents a single MCP server registration
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls a registration
type Options struct {
	BinaryPath string
	Env        map[string]string
}

// Status describes the current registration
type Status struct {
	ConfigPath string   `json:"config_path"`
	Registered bool     `json:"registered"`
	BinaryPath string   `json:"binary_path,omitempty"`
	EnvKeys    []string `json:"env_keys,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// DefaultConfigPath returns the platform location of the client config file
func DefaultConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadDesktopConfig reads the client configuration. A missing file yields an empty config.
func LoadDesktopConfig(path string) (*DesktopConfig, error) {
	config := &DesktopConfig{
		MCPServers: make(map[string]ServerEntry),
		extra:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]ServerEntry)
	}
	return config, nil
}

// SaveDesktopConfig writes the configuration, creating the directory if needed
func SaveDesktopConfig(path string, config *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the config file at path
func Register(path string, opts Options) error {
	if opts.BinaryPath == "" {
		return errors.New("binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve binary path: %w", err)
	}

	config, err := LoadDesktopConfig(path)
	if err != nil {
		return err
	}

	entry := ServerEntry{Command: binary}
	if len(opts.Env) > 0 {
		entry.Env = make(map[string]string, len(opts.Env))
		for k, v := range opts.Env {
			entry.Env[k] = v
		}
	}
	config.MCPServers[ServerName] = entry

	return SaveDesktopConfig(path, config)
}

// EnvFromProcess collects the passthrough variables that are set in this process
func EnvFromProcess() map[string]string {
	env := make(map[string]string)
	for _, key := range PassthroughEnv {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			env[key] = value
		}
	}
	return env
}

// Inspect reports whether the server is registered and whether the registration can start
func Inspect(path string) (*Status, error) {
	config, err := LoadDesktopConfig(path)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: path}
	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "server is not registered")
		return status, nil
	}

	status.Registered = true
	status.BinaryPath = entry.Command
	for k := range entry.Env {
		status.EnvKeys = append(status.EnvKeys, k)
	}
	sort.Strings(status.EnvKeys)

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}

	if entry.Env["NIRAMAY_GEMINI_API_KEYS"] == "" && entry.Env["NIRAMAY_GEMINI_API_KEY"] == "" {
		status.Issues = append(status.Issues, "no Gemini credentials in registration; the server will rely on its own environment")
	}
	return status, nil
}
