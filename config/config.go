// Package config loads the server configuration. Precedence:
// flags > environment > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIBREIDP_"

// Defaults.
const (
	DefaultPort      = 8080
	DefaultPluginDir = "plugins"
	DefaultIssuer    = "http://localhost:8080"
)

// DefaultPlugins are loaded when the configuration names none.
var DefaultPlugins = []string{"oauth2", "metrics"}

// Config holds all application configuration.
type Config struct {
	Port       int      `yaml:"port"`
	Plugins    []string `yaml:"plugins"`
	PluginDirs []string `yaml:"plugin_dirs"`
	Issuer     string   `yaml:"issuer"`
	Log        Log      `yaml:"log"`
	Limits     Limits   `yaml:"limits"`
}

// Log selects the logger's level and format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Limits bounds the size of incoming requests.
type Limits struct {
	MaxHeaderBytes int   `yaml:"max_header_bytes"`
	MaxBodyBytes   int64 `yaml:"max_body_bytes"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	parser := http.DefaultParserConfig()
	return &Config{
		Port:       DefaultPort,
		Plugins:    append([]string(nil), DefaultPlugins...),
		PluginDirs: []string{DefaultPluginDir},
		Issuer:     DefaultIssuer,
		Log:        Log{Level: "info", Format: string(logging.FormatText)},
		Limits: Limits{
			MaxHeaderBytes: parser.MaxHeaderBytes,
			MaxBodyBytes:   parser.MaxBodyBytes,
		},
	}
}

// FileError is a configuration file that could not be decoded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// Load reads the YAML file at path over the defaults. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LIBREIDP_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		c.Port = port
	}
	if v, ok := lookup("PLUGINS"); ok {
		c.Plugins = splitList(v, ",")
	}
	if v, ok := lookup("PLUGIN_DIRS"); ok {
		c.PluginDirs = splitList(v, string(filepath.ListSeparator))
	}
	if v, ok := lookup("ISSUER"); ok {
		c.Issuer = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	ErrInvalidPort   = errors.New("port must be between 1 and 65535")
	ErrInvalidLevel  = errors.New("log level must be debug, info, warn or error")
	ErrInvalidFormat = errors.New("log format must be text or json")
	ErrInvalidLimits = errors.New("request limits must be positive")
)

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPort, c.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLevel, c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Log.Format))
	}
	if c.Limits.MaxHeaderBytes <= 0 || c.Limits.MaxBodyBytes <= 0 {
		errs = append(errs, ErrInvalidLimits)
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.Format = logging.ParseFormat(c.Log.Format)
	return lc
}

// Parser returns the request parser limits.
func (c *Config) Parser() http.ParserConfig {
	return http.ParserConfig{
		MaxHeaderBytes: c.Limits.MaxHeaderBytes,
		MaxBodyBytes:   c.Limits.MaxBodyBytes,
	}
}
