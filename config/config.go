// Package config holds the git-lfs-client configuration. Values come from
// defaults, an optional YAML file and GIT_LFS_CLIENT_ environment variables,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all configuration environment variables.
const EnvPrefix = "GIT_LFS_CLIENT_"

// ErrNilConfig is returned when a nil config is passed to a function.
var ErrNilConfig = errors.New("nil config")

// LFSConfig is the configuration of the LFS endpoint and object store.
type LFSConfig struct {
	// URL overrides the LFS endpoint. When empty, it is taken from the
	// repository's lfs.url or derived from its origin remote.
	URL string `env:"URL" yaml:"url"`

	// Umask applied to downloaded objects, in octal. When empty, it is
	// derived from core.sharedrepository and the process umask.
	Umask string `env:"UMASK" yaml:"umask"`

	// Ref is the git reference sent along with batch requests.
	Ref string `env:"REF" yaml:"ref"`
}

// TransferConfig is the retry configuration of object transfers.
type TransferConfig struct {
	// Attempts is the number of times an object transfer is attempted.
	Attempts int `env:"ATTEMPTS" yaml:"attempts"`

	// Delay is the fixed delay between two attempts.
	Delay time.Duration `env:"DELAY" yaml:"delay"`
}

// HTTPConfig is the configuration of the HTTP remote.
type HTTPConfig struct {
	// Timeout of a single request. Zero means no timeout.
	Timeout time.Duration `env:"TIMEOUT" yaml:"timeout"`

	// Headers are sent with every request.
	Headers map[string]string `env:"HEADERS" envKeyValSeparator:"=" yaml:"headers"`
}

// LogConfig is the logger configuration.
type LogConfig struct {
	// Format is the format of the logs.
	// Valid values are "json", "logfmt", and "text".
	Format string `env:"FORMAT" yaml:"format"`

	// Time format for the log `ts` field.
	// Format must be described in Golang's time format.
	TimeFormat string `env:"TIME_FORMAT" yaml:"time_format"`

	// Level is the minimum log level.
	Level string `env:"LEVEL" yaml:"level"`

	// Path to a file to write logs to.
	// If not set, logs will be written to stderr.
	Path string `env:"PATH" yaml:"path"`
}

// MetricsConfig is the metrics configuration.
type MetricsConfig struct {
	// Textfile is a path the transfer metrics are written to after each
	// run, in the Prometheus text format.
	Textfile string `env:"TEXTFILE" yaml:"textfile"`
}

// Config is the git-lfs-client configuration.
type Config struct {
	// LFS is the LFS endpoint configuration.
	LFS LFSConfig `envPrefix:"LFS_" yaml:"lfs"`

	// Transfer is the retry configuration.
	Transfer TransferConfig `envPrefix:"TRANSFER_" yaml:"transfer"`

	// HTTP is the HTTP remote configuration.
	HTTP HTTPConfig `envPrefix:"HTTP_" yaml:"http"`

	// Log is the logger configuration.
	Log LogConfig `envPrefix:"LOG_" yaml:"log"`

	// Metrics is the metrics configuration.
	Metrics MetricsConfig `envPrefix:"METRICS_" yaml:"metrics"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Transfer: TransferConfig{
			Attempts: 3,
			Delay:    500 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Headers: map[string]string{},
		},
		Log: LogConfig{
			Format:     "text",
			TimeFormat: time.DateTime,
			Level:      "info",
		},
	}
}

// IsDebug returns true if debug logging is forced by the environment.
func IsDebug() bool {
	debug, _ := strconv.ParseBool(os.Getenv(EnvPrefix + "DEBUG"))
	return debug
}

// IsVerbose returns true if verbose mode is enabled.
// Verbose mode is only enabled if debug mode is enabled.
func IsVerbose() bool {
	verbose, _ := strconv.ParseBool(os.Getenv(EnvPrefix + "VERBOSE"))
	return IsDebug() && verbose
}

// ParseFile parses the given file as a configuration file.
// The file must be in YAML format. This also calls Validate() on the config.
func (c *Config) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close() // nolint: errcheck
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return c.Validate()
}

// ParseEnv parses the config from the environment variables.
// This also calls Validate() on the config.
func (c *Config) ParseEnv() error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}

	return c.Validate()
}

// Parse parses the config from the given file, when it is not empty, and
// the environment variables.
// This also calls Validate() on the config.
func (c *Config) Parse(path string) error {
	if path != "" {
		if err := c.ParseFile(path); err != nil {
			return err
		}
	}

	return c.ParseEnv()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	c.LFS.URL = strings.TrimSuffix(c.LFS.URL, "/")

	if _, _, err := c.Umask(); err != nil {
		return err
	}

	if c.Transfer.Attempts < 1 {
		return fmt.Errorf("transfer attempts must be at least 1, got %d", c.Transfer.Attempts)
	}

	if c.Transfer.Delay < 0 {
		return fmt.Errorf("transfer delay must not be negative, got %s", c.Transfer.Delay)
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http timeout must not be negative, got %s", c.HTTP.Timeout)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "logfmt", "text":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}

	return nil
}

// Umask returns the configured umask. It reports false when no umask is
// configured.
func (c *Config) Umask() (fs.FileMode, bool, error) {
	if c.LFS.Umask == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(c.LFS.Umask, 8, 32)
	if err != nil || v > 0o777 {
		return 0, false, fmt.Errorf("invalid umask %q", c.LFS.Umask)
	}
	return fs.FileMode(v), true, nil
}
