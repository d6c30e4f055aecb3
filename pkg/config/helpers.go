package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cperrin88/dlkeep/pkg/errors"
)

// SetValue sets a configuration value by key.
// Supported keys:
//   - download_root_dir: string - Directory products are downloaded into
//   - base_url: string - Store section URL the download endpoints live under
//   - user_agent: string - User-Agent header sent with every request
//   - http_timeout: duration - Connection and response header timeout
//   - max_retries: int - Connection retries per file
//   - retry_backoff: duration - Wait between connection retries
//   - max_stream_restarts: int - Mid-stream resumes per file, 0 for unbounded
//   - extract: bool - Extract archives after a download
//   - pre_download_hook: string - Tengo script run before a download
//   - post_download_hook: string - Tengo script run after a download
//   - log_level: string - Logging level (debug, info, warn, error)
//   - log_format: string - Log output format (text, json)
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "download_root_dir":
		s.DownloadRootDir = value
	case "base_url":
		s.BaseURL = value
	case "user_agent":
		s.UserAgent = value
	case "pre_download_hook":
		s.PreDownloadHook = value
	case "post_download_hook":
		s.PostDownloadHook = value
	case "http_timeout":
		return setDuration(key, value, &s.HTTPTimeout)
	case "retry_backoff":
		return setDuration(key, value, &s.RetryBackoff)
	case "max_retries":
		return setCount(key, value, &s.MaxRetries)
	case "max_stream_restarts":
		return setCount(key, value, &s.MaxStreamRestarts)
	case "extract":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w for %s: %s", errors.ErrInvalidBoolValue, key, value)
		}
		s.Extract = boolVal
	case "log_level":
		level := strings.ToLower(value)
		switch level {
		case "debug", "info", "warn", "error":
			s.LogLevel = level
		default:
			return errors.ErrInvalidLogLevelWithDetails(value)
		}
	case "log_format":
		switch value {
		case "text", "json":
			s.LogFormat = value
		default:
			return errors.ErrInvalidLogFormatWithDetails(value)
		}
	default:
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	return nil
}

func setDuration(key, value string, dst *time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w for %s: %s", errors.ErrInvalidDurationValue, key, value)
	}
	if d < 0 {
		return errors.ErrNegativeValueWithName(key)
	}
	*dst = d
	return nil
}

func setCount(key, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w for %s: %s", errors.ErrInvalidIntValue, key, value)
	}
	if n < 0 {
		return errors.ErrNegativeValueWithName(key)
	}
	*dst = n
	return nil
}

// GetValue returns the value of a setting as a string.
func (c *Config) GetValue(key string) (string, error) {
	value, ok := c.ToMap()[key]
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return value, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// ToMap flattens the settings into yaml key / string value pairs.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		field := settingsType.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Handle yaml tags with options (e.g., "download_root_dir,omitempty")
		yamlKey := strings.Split(yamlTag, ",")[0]

		fieldValue := settingsValue.Field(i)
		var strValue string

		switch {
		case fieldValue.Type() == durationType:
			strValue = time.Duration(fieldValue.Int()).String()
		case fieldValue.Kind() == reflect.Bool:
			strValue = strconv.FormatBool(fieldValue.Bool())
		case fieldValue.CanInt():
			strValue = strconv.FormatInt(fieldValue.Int(), 10)
		case fieldValue.Kind() == reflect.String:
			strValue = fieldValue.String()
		default:
			strValue = fmt.Sprintf("%v", fieldValue.Interface())
		}

		result[yamlKey] = strValue
	}

	return result
}
