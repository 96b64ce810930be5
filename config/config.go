// Package config provides YAML configuration parsing for the resultboard
// server binary.
//
// Example configuration:
//
//	title: Analysis Results
//	port: 8080
//
//	log:
//	  level: info
//	  format: json
//
//	bus:
//	  driver: nats
//	  url: ${NATS_URL:-nats://localhost:4222}
//	  subject: resultboard.events
//	  timeout: 5s
//
//	metrics:
//	  enabled: true
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minBusTimeout is the smallest request timeout accepted for the bus.
const minBusTimeout = 1 * time.Second

const (
	DefaultPort    = 8080
	DefaultSubject = "resultboard.events"
	DefaultBusName = "resultboard"
)

// Bus drivers.
const (
	DriverMemory = "memory"
	DriverNATS   = "nats"
	DriverNone   = "none"
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Analysis Results" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	Log LogConfig `yaml:"log"`

	Bus BusConfig `yaml:"bus"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is json or text. Defaults to json.
	Format string `yaml:"format"`
}

// BusConfig configures the message bus the store listens on.
type BusConfig struct {
	// Driver is memory, nats or none. Defaults to none. The memory bus only
	// reaches code running in the same process.
	Driver string `yaml:"driver"`

	// URL is the NATS server URL. Required for the nats driver.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Subject carries every envelope. Defaults to "resultboard.events".
	// Supports environment variable substitution.
	Subject string `yaml:"subject"`

	// Name is the client connection name. Defaults to "resultboard".
	Name string `yaml:"name"`

	// Timeout bounds connects and requests. Must be at least 1s if set.
	Timeout Duration `yaml:"timeout"`
}

// MetricsConfig toggles the Prometheus registry and /metrics endpoint.
type MetricsConfig struct {
	// Enabled defaults to true.
	Enabled bool `yaml:"enabled"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Port: DefaultPort,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Bus: BusConfig{
			Driver:  DriverNone,
			Subject: DefaultSubject,
			Name:    DefaultBusName,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Fields absent from data keep the values from [Default]. Environment
// variables are expanded in bus.url and bus.subject.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	return c.Bus.expandAndValidate()
}

func (b *BusConfig) expandAndValidate() error {
	if b.Driver == "" {
		b.Driver = DriverNone
	}
	switch b.Driver {
	case DriverMemory, DriverNATS, DriverNone:
	default:
		return fmt.Errorf("bus.driver must be memory, nats, or none, got %q", b.Driver)
	}

	subject, err := expandEnvVars(b.Subject)
	if err != nil {
		return fmt.Errorf("bus.subject: %w", err)
	}
	b.Subject = strings.TrimSpace(subject)
	if b.Subject == "" {
		b.Subject = DefaultSubject
	}
	if strings.ContainsAny(b.Subject, " \t*>") {
		return fmt.Errorf("bus.subject must be a literal subject without spaces or wildcards, got %q", b.Subject)
	}
	for _, token := range strings.Split(b.Subject, ".") {
		if token == "" {
			return fmt.Errorf("bus.subject has an empty token: %q", b.Subject)
		}
	}

	if b.Name == "" {
		b.Name = DefaultBusName
	}

	if b.Timeout != 0 {
		if b.Timeout.Duration() < 0 {
			return fmt.Errorf("bus.timeout cannot be negative, got %s", b.Timeout.Duration())
		}
		if b.Timeout.Duration() < minBusTimeout {
			return fmt.Errorf("bus.timeout must be at least %s if specified, got %s", minBusTimeout, b.Timeout.Duration())
		}
	}

	expanded, err := expandEnvVars(b.URL)
	if err != nil {
		return fmt.Errorf("bus.url: %w", err)
	}
	b.URL = expanded

	if b.Driver != DriverNATS {
		return nil
	}
	if b.URL == "" {
		return fmt.Errorf("bus.url is required for the nats driver")
	}
	// a NATS URL may list several servers separated by commas
	for _, server := range strings.Split(b.URL, ",") {
		parsed, err := url.Parse(strings.TrimSpace(server))
		if err != nil {
			return fmt.Errorf("bus.url: invalid url: %w", err)
		}
		switch parsed.Scheme {
		case "nats", "tls", "ws", "wss":
		case "":
			return fmt.Errorf("bus.url must have a scheme (nats://, tls://, ws:// or wss://)")
		default:
			return fmt.Errorf("bus.url scheme must be nats, tls, ws, or wss, got %q", parsed.Scheme)
		}
	}
	return nil
}
