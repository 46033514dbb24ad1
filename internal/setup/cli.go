package setup

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const usage = `Niramay PGx MCP server setup

Usage:
  mcp-server setup register [--binary PATH] [--config PATH] [--no-env]
  mcp-server setup status [--config PATH]

register  add this server to the desktop MCP client configuration
status    show the current registration and any problems with it
`

// CLI runs setup subcommands
type CLI struct {
	out io.Writer
}

// NewCLI creates a setup CLI writing to out
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Run executes a setup subcommand
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return nil
	}

	switch args[0] {
	case "register":
		return c.register(args[1:])
	case "status":
		return c.status(args[1:])
	case "help", "--help", "-h":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) register(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.out)
	binary := fs.String("binary", "", "server binary to launch (defaults to this executable)")
	configPath := fs.String("config", "", "client config file (defaults to the platform location)")
	noEnv := fs.Bool("no-env", false, "do not copy credentials from the environment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		return err
	}

	if *binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		*binary = exe
	}

	opts := Options{BinaryPath: *binary}
	if !*noEnv {
		opts.Env = EnvFromProcess()
	}

	if err := Register(path, opts); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	keys := make([]string, 0, len(opts.Env))
	for _, key := range PassthroughEnv {
		if _, ok := opts.Env[key]; ok {
			keys = append(keys, key)
		}
	}

	fmt.Fprintf(c.out, "Registered %q in %s\n", ServerName, path)
	fmt.Fprintf(c.out, "Command: %s\n", *binary)
	if len(keys) > 0 {
		fmt.Fprintf(c.out, "Environment: %s\n", strings.Join(keys, ", "))
	}
	fmt.Fprintln(c.out, "Restart the client to load the new configuration.")
	return nil
}

func (c *CLI) status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.out)
	configPath := fs.String("config", "", "client config file (defaults to the platform location)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		return err
	}

	status, err := Inspect(path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	fmt.Fprintln(c.out, string(data))
	return nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultConfigPath()
}
