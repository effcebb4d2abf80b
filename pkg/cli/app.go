package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-chat/internal/config"
	"github.com/agent-protocol/a2a-chat/internal/logging"
)

// Version information - will be set during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const configKey = "config"

// NewApp creates and configures the CLI application
func NewApp() *cli.App {
	app := &cli.App{
		Name:    "a2a-chat",
		Usage:   "Resolve A2A agent cards and chat with remote agents",
		Version: Version,
		Commands: []*cli.Command{
			webCommand(),
			chatCommand(),
			cardCommand(),
			demoAgentCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Logging level (DEBUG, INFO, WARNING, ERROR, CRITICAL)",
				EnvVars: []string{config.EnvLogLevel},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"A2A_CHAT_CONFIG"},
			},
		},
		Before: before,
	}

	app.Metadata = map[string]any{}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "%s %s (commit %s, built %s)\n", c.App.Name, Version, GitCommit, BuildTime)
	}

	return app
}

func before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "DEBUG"
	}

	if _, err := logging.Setup(cfg.LogLevel, c.App.ErrWriter); err != nil {
		return err
	}

	c.App.Metadata[configKey] = cfg
	return nil
}

// appConfig returns the configuration loaded by before.
func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// Common web server flags
func webServerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Host to bind the server to",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Port to bind the server to",
		},
	}
}

// Common agent client flags
func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "stream",
			Usage: "Stream replies from agents that advertise streaming",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for a single task",
		},
		&cli.StringSliceFlag{
			Name:  "header",
			Usage: "Extra request header as Key=Value (repeatable)",
		},
	}
}

// applyClientFlags overrides configuration with explicitly set client flags.
func applyClientFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("stream") {
		cfg.Stream = c.Bool("stream")
	}
	if c.IsSet("timeout") {
		cfg.TaskTimeout = c.Duration("timeout")
	}
	for _, h := range c.StringSlice("header") {
		key, value, ok := cutHeader(h)
		if !ok {
			return fmt.Errorf("invalid header %q, expected Key=Value", h)
		}
		cfg.Headers[key] = value
	}
	return nil
}

func cutHeader(h string) (string, string, bool) {
	key, value, ok := strings.Cut(h, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}
