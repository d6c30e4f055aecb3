package cli

import (
	"fmt"
	"strings"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/archive"
	"github.com/cperrin88/dlkeep/pkg/config"
	"github.com/cperrin88/dlkeep/pkg/download"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/hook"
	dlhttp "github.com/cperrin88/dlkeep/pkg/http"
	"github.com/cperrin88/dlkeep/pkg/orchestrator"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	LogFormat  *string
)

// loadConfig loads the configuration, applies the global flags and
// initializes the logger from the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with CLI flags if provided
	if LogFormat != nil && *LogFormat != "" {
		format := strings.ToLower(*LogFormat)
		if format != string(logger.FormatText) && format != string(logger.FormatJSON) {
			return nil, fmt.Errorf("%w: %q", errors.ErrInvalidLogFormat, *LogFormat)
		}
		cfg.Settings.LogFormat = format
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.LogFormat))
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig fail with a descriptive error.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// newOrchestrator wires the HTTP session, download manager, archive
// extraction and configured hooks into one orchestrator.
func newOrchestrator(cfg *config.Config, cookies map[string]string) (*orchestrator.Orchestrator, error) {
	client, err := dlhttp.NewHTTPClient(cfg.HTTPOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if err := client.SetCookies(cfg.Settings.BaseURL, cookies); err != nil {
		return nil, err
	}

	hooks := hook.NewHookManager()
	scripts := []struct {
		hookType hook.HookType
		path     string
	}{
		{hook.PreDownload, cfg.Settings.PreDownloadHook},
		{hook.PostDownload, cfg.Settings.PostDownloadHook},
	}
	for _, script := range scripts {
		if script.path == "" {
			continue
		}
		if err := hook.LoadHookFile(hooks, script.hookType, script.path); err != nil {
			return nil, err
		}
		logger.Debug("Loaded hook", logger.Fields{"type": string(script.hookType), "path": script.path})
	}

	return &orchestrator.Orchestrator{
		DL: download.NewManager(client, download.Options{
			BaseURL: cfg.Settings.BaseURL,
			Policy:  cfg.RetryPolicy(),
		}),
		Extractor:  archive.NewManager(),
		HookRunner: hooks,
		Hooks:      orchestrator.Hooks{OnEvent: logEvent},
	}, nil
}

func logEvent(e orchestrator.Event) {
	fields := logger.Fields{"phase": e.Phase, "product": e.ID}
	if e.Msg != "" {
		fields["msg"] = e.Msg
	}
	logger.Debug("Orchestrator event", fields)
}

// parseCookies turns repeated NAME=VALUE flags into a cookie map.
func parseCookies(values []string) (map[string]string, error) {
	cookies := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errors.ErrInvalidCookie, v)
		}
		cookies[name] = value
	}
	return cookies, nil
}
