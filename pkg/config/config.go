// Package config provides configuration management for dlkeep.
// It handles loading, validating and saving the YAML configuration file and
// converts the stored settings into the options used by the downloader.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cperrin88/dlkeep/pkg/download"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
	dlhttp "github.com/cperrin88/dlkeep/pkg/http"
	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Version of the configuration file format.
	Version string `yaml:"version"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage settings
	DownloadRootDir string `yaml:"download_root_dir,omitempty"`

	// Network settings
	BaseURL           string        `yaml:"base_url"`
	UserAgent         string        `yaml:"user_agent"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	MaxStreamRestarts int           `yaml:"max_stream_restarts"` // 0 = unbounded

	// Post-processing
	Extract          bool   `yaml:"extract"`
	PreDownloadHook  string `yaml:"pre_download_hook,omitempty"`  // path to a tengo script
	PostDownloadHook string `yaml:"post_download_hook,omitempty"` // path to a tengo script

	// Output settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// Default configuration values.
const (
	// CurrentVersion is written into new configuration files.
	CurrentVersion = "1.0"

	// SupportedVersions is the constraint a loaded file's version must satisfy.
	SupportedVersions = ">= 1.0, < 2.0"

	// DefaultHTTPTimeout bounds connection setup and response headers.
	DefaultHTTPTimeout = 30 * time.Second

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	libraryDir, err := fsutil.GetLibraryDir()
	if err != nil {
		// Fallback to current directory if we can't determine the data dir
		libraryDir = "library"
	}

	return &Config{
		Version: CurrentVersion,
		Settings: Settings{
			DownloadRootDir: libraryDir,
			BaseURL:         download.DefaultBaseURL,
			UserAgent:       dlhttp.DefaultUserAgent,
			HTTPTimeout:     DefaultHTTPTimeout,
			MaxRetries:      download.DefaultMaxRetries,
			RetryBackoff:    download.DefaultBackoff,
			LogLevel:        "info",
			LogFormat:       "text",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	// Validate the config file path
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
// Keys absent from the document keep their default values.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return config, nil
}

// SaveConfig writes the configuration to path, replacing any existing file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigDirectory, err)
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeSecure)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigFileCreate, err)
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %w", errors.ErrConfigEncode, err)
	}

	_ = encoder.Close()
	_ = file.Close()

	// Atomically replace the config file
	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %w", errors.ErrConfigFileRename, err)
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigEncode, err)
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateVersion(c.Version); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateVersion(v string) error {
	parsed, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errors.ErrUnsupportedConfigVersion, v, err)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(parsed) {
		return fmt.Errorf("%w: %s does not satisfy %q", errors.ErrUnsupportedConfigVersion, v, SupportedVersions)
	}
	return nil
}

func validateSettings(s Settings) error {
	durations := map[string]time.Duration{
		"http_timeout":  s.HTTPTimeout,
		"retry_backoff": s.RetryBackoff,
	}
	for key, d := range durations {
		if d < 0 {
			return errors.ErrNegativeValueWithName(key)
		}
	}
	counts := map[string]int{
		"max_retries":         s.MaxRetries,
		"max_stream_restarts": s.MaxStreamRestarts,
	}
	for key, n := range counts {
		if n < 0 {
			return errors.ErrNegativeValueWithName(key)
		}
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", s.BaseURL)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.LogFormat] {
		return errors.ErrInvalidLogFormatWithDetails(s.LogFormat)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// GetDownloadRootDir returns the library directory with a leading "~" expanded.
func (c *Config) GetDownloadRootDir() string {
	dir := c.Settings.DownloadRootDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

// RetryPolicy returns the per-file retry behavior configured by the settings.
func (c *Config) RetryPolicy() download.RetryPolicy {
	return download.RetryPolicy{
		MaxRetries:        c.Settings.MaxRetries,
		Backoff:           c.Settings.RetryBackoff,
		MaxStreamRestarts: c.Settings.MaxStreamRestarts,
	}
}

// HTTPOptions returns the transport options configured by the settings.
func (c *Config) HTTPOptions() dlhttp.Options {
	return dlhttp.Options{
		Timeout:   c.Settings.HTTPTimeout,
		UserAgent: c.Settings.UserAgent,
	}
}

// applyDefaults fills in values an explicit empty string would otherwise clear.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Settings.DownloadRootDir == "" {
		c.Settings.DownloadRootDir = defaults.Settings.DownloadRootDir
	}
	if c.Settings.BaseURL == "" {
		c.Settings.BaseURL = defaults.Settings.BaseURL
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
}
