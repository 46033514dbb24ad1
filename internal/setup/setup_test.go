package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestLoadDesktopConfig_MissingFile(t *testing.T) {
	config, err := LoadDesktopConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, config.MCPServers)
}

func TestLoadDesktopConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadDesktopConfig(path)
	assert.Error(t, err)
}

func TestRegister_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	existing := `{"globalShortcut":"Ctrl+Space","mcpServers":{"other":{"command":"/usr/bin/other"}}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	binary := writeExecutable(t, dir)
	err := Register(path, Options{
		BinaryPath: binary,
		Env:        map[string]string{"NIRAMAY_GEMINI_API_KEYS": "k1,k2"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"Ctrl+Space"`, string(raw["globalShortcut"]))

	config, err := LoadDesktopConfig(path)
	require.NoError(t, err)
	require.Contains(t, config.MCPServers, "other")
	entry := config.MCPServers[ServerName]
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, "k1,k2", entry.Env["NIRAMAY_GEMINI_API_KEYS"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRegister_RequiresBinary(t *testing.T) {
	err := Register(filepath.Join(t.TempDir(), "config.json"), Options{})
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	status, err := Inspect(path)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.NotEmpty(t, status.Issues)

	binary := writeExecutable(t, dir)
	require.NoError(t, Register(path, Options{
		BinaryPath: binary,
		Env:        map[string]string{"NIRAMAY_GEMINI_API_KEY": "k1", "NIRAMAY_PINECONE_API_KEY": "pc"},
	}))

	status, err = Inspect(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, binary, status.BinaryPath)
	assert.Equal(t, []string{"NIRAMAY_GEMINI_API_KEY", "NIRAMAY_PINECONE_API_KEY"}, status.EnvKeys)
	assert.Empty(t, status.Issues)

	require.NoError(t, os.Remove(binary))
	status, err = Inspect(path)
	require.NoError(t, err)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestEnvFromProcess(t *testing.T) {
	for _, key := range PassthroughEnv {
		t.Setenv(key, "")
	}
	t.Setenv("NIRAMAY_PINECONE_INDEX_HOST", "pgx-abc.svc.pinecone.io")

	env := EnvFromProcess()
	assert.Equal(t, map[string]string{"NIRAMAY_PINECONE_INDEX_HOST": "pgx-abc.svc.pinecone.io"}, env)
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	binary := writeExecutable(t, dir)

	var out bytes.Buffer
	cli := NewCLI(&out)

	require.NoError(t, cli.Run([]string{"register", "--config", path, "--binary", binary, "--no-env"}))
	assert.Contains(t, out.String(), ServerName)

	out.Reset()
	require.NoError(t, cli.Run([]string{"status", "--config", path}))
	assert.Contains(t, out.String(), `"registered": true`)

	out.Reset()
	assert.Error(t, cli.Run([]string{"bogus"}))
	assert.Contains(t, out.String(), "Usage:")
}
