// Package config loads a2a-chat settings from defaults, an optional YAML
// file and the environment (including a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/agent-protocol/a2a-chat/internal/logging"
	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// Environment variables read by Load.
const (
	EnvHost         = "A2A_CHAT_HOST"
	EnvPort         = "A2A_CHAT_PORT"
	EnvAllowOrigins = "A2A_CHAT_ALLOW_ORIGINS"
	EnvLogLevel     = "A2A_CHAT_LOG_LEVEL"
	EnvStream       = "A2A_CHAT_STREAM"
	EnvAgentURL     = "A2A_CHAT_AGENT_URL"
	EnvCardURL      = "A2A_CHAT_CARD_URL"
	EnvTaskTimeout  = "A2A_CHAT_TASK_TIMEOUT"
	EnvCardTimeout  = "A2A_CHAT_CARD_TIMEOUT"
	EnvSessionTTL   = "A2A_CHAT_SESSION_TTL"
)

// Config holds every setting of the a2a-chat binary.
type Config struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allowOrigins"`
	LogLevel     string   `yaml:"logLevel"`

	Stream   bool   `yaml:"stream"`
	AgentURL string `yaml:"agentUrl"`
	CardURL  string `yaml:"cardUrl"`

	TaskTimeout time.Duration `yaml:"taskTimeout"`
	CardTimeout time.Duration `yaml:"cardTimeout"`
	SessionTTL  time.Duration `yaml:"sessionTTL"`

	// Headers are sent with every request to agents, e.g. Authorization.
	Headers map[string]string `yaml:"headers"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        8501,
		LogLevel:    "INFO",
		TaskTimeout: a2a.DefaultTaskTimeout,
		CardTimeout: a2a.DefaultCardTimeout,
		SessionTTL:  2 * time.Hour,
		Headers:     map[string]string{},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvAgentURL); ok {
		c.AgentURL = v
	}
	if v, ok := os.LookupEnv(EnvCardURL); ok {
		c.CardURL = v
	}
	if v, ok := os.LookupEnv(EnvAllowOrigins); ok {
		c.AllowOrigins = splitList(v)
	}

	var errs []error

	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPort, err))
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv(EnvStream); ok {
		stream, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvStream, err))
		}
		c.Stream = stream
	}

	for name, target := range map[string]*time.Duration{
		EnvTaskTimeout: &c.TaskTimeout,
		EnvCardTimeout: &c.CardTimeout,
		EnvSessionTTL:  &c.SessionTTL,
	} {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*target = d
	}

	return errors.Join(errs...)
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("task timeout must be positive")
	}
	if c.CardTimeout <= 0 {
		return fmt.Errorf("card timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
