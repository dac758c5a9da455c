// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lumia-app/mia-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete application configuration.
type Config struct {
	// Server configuration (local LM Studio instance)
	Server ServerConfig `toml:"server" json:"server"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains the completion server connection settings.
type ServerConfig struct {
	// URL is the base URL of the local LM Studio server
	URL string `toml:"url" json:"url"`
	// Model is the model identifier sent with each request
	Model string `toml:"model" json:"model"`
	// RequestTimeoutSecs bounds a single completion request (0 = default)
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// RequestsPerSecond throttles outgoing requests (0 = default)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// ChatConfig contains chat behavior settings.
type ChatConfig struct {
	// Policy selects how history is assembled: "full" or "alternating"
	Policy string `toml:"policy" json:"policy"`
	// Temperature is the sampling temperature (0 = profile default)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps the completion length (0 = profile default)
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Greeting controls whether new sessions open with the assistant greeting
	Greeting bool `toml:"greeting" json:"greeting"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Path is the JSON storage file for chat sessions
	Path string `toml:"path" json:"path"`
	// IndexPath is the SQLite search index location
	IndexPath string `toml:"index_path" json:"index_path"`
	// Watch reloads the store when the storage file changes on disk
	Watch bool `toml:"watch" json:"watch"`
	// WatchDebounceMs coalesces rapid file events (0 = default)
	WatchDebounceMs int `toml:"watch_debounce_ms" json:"watch_debounce_ms"`
}

// UIConfig contains UI settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowTimestamps displays message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".lumia")

	return &Config{
		Server: ServerConfig{
			URL:                "http://localhost:1234",
			Model:              "gemma-3-4b-it-qat",
			RequestTimeoutSecs: 120,
			RequestsPerSecond:  2,
		},
		Chat: ChatConfig{
			Policy:   "full",
			Greeting: true,
		},
		Storage: StorageConfig{
			Path:            filepath.Join(dir, "chat-storage.json"),
			IndexPath:       filepath.Join(dir, "history.db"),
			Watch:           true,
			WatchDebounceMs: 250,
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: true,
			CompactMode:    false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the application configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lumia"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON files are detected by extension, everything else is
// treated as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# mia configuration file")
	fmt.Fprintln(file, "# Generated by mia - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: "must not be empty",
		})
	} else {
		parsed, err := url.Parse(c.Server.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Server.URL),
			})
		}
	}

	if c.Server.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "server.model",
			Message: "must not be empty",
		})
	}

	if c.Server.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.requests_per_second",
			Message: "must be non-negative",
		})
	}

	validPolicies := map[string]bool{"full": true, "alternating": true}
	if !validPolicies[strings.ToLower(c.Chat.Policy)] {
		errs = append(errs, ValidationError{
			Field:   "chat.policy",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: full, alternating", c.Chat.Policy),
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Chat.Temperature),
		})
	}

	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: "must be non-negative",
		})
	}

	if c.Storage.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "must not be empty",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.Model == "" {
		c.Server.Model = defaults.Server.Model
	}
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if c.Server.RequestsPerSecond == 0 {
		c.Server.RequestsPerSecond = defaults.Server.RequestsPerSecond
	}

	if c.Chat.Policy == "" {
		c.Chat.Policy = defaults.Chat.Policy
	}

	if c.Storage.Path == "" {
		c.Storage.Path = defaults.Storage.Path
	}
	if c.Storage.IndexPath == "" {
		c.Storage.IndexPath = defaults.Storage.IndexPath
	}
	if c.Storage.WatchDebounceMs == 0 {
		c.Storage.WatchDebounceMs = defaults.Storage.WatchDebounceMs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// RequestTimeout returns the server request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// WatchDebounce returns the storage watch debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Storage.WatchDebounceMs) * time.Millisecond
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MIA_SERVER_URL: overrides server.url
//   - MIA_MODEL: overrides server.model
//   - MIA_STORAGE_PATH: overrides storage.path
//   - MIA_POLICY: overrides chat.policy
//   - MIA_THEME: overrides ui.theme
//   - MIA_NO_WATCH: set to "1" or "true" to disable storage watching
func (c *Config) ApplyEnvOverrides() {
	if serverURL := os.Getenv("MIA_SERVER_URL"); serverURL != "" {
		c.Server.URL = serverURL
	}
	if model := os.Getenv("MIA_MODEL"); model != "" {
		c.Server.Model = model
	}
	if path := os.Getenv("MIA_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if policy := os.Getenv("MIA_POLICY"); policy != "" {
		c.Chat.Policy = policy
	}
	if theme := os.Getenv("MIA_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if noWatch := os.Getenv("MIA_NO_WATCH"); noWatch != "" {
		if noWatch == "1" || strings.EqualFold(noWatch, "true") {
			c.Storage.Watch = false
		}
	}
	if timeout := os.Getenv("MIA_REQUEST_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Server.RequestTimeoutSecs = secs
		}
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
