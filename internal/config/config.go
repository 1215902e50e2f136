// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for personachat.
//
// Configuration file locations (in order of precedence):
//   - --config flag
//   - ~/.personachat/config.toml
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete personachat configuration.
type Config struct {
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Agent    AgentConfig    `toml:"agent" json:"agent"`
	Persona  PersonaConfig  `toml:"persona" json:"persona"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Server   ServerConfig   `toml:"server" json:"server"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ProviderConfig selects and configures the completion backend.
type ProviderConfig struct {
	// Name is one of "openai", "openrouter", "ollama"
	Name string `toml:"name" json:"name"`
	// APIKey is the single static credential for cloud providers
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL overrides the provider's default endpoint (empty = provider default)
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the model identifier sent with every request (empty = provider default)
	Model string `toml:"model" json:"model"`
	// Temperature for sampling; 0 leaves the provider default
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TimeoutSecs bounds a single completion round trip
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// Timeout returns the request timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// AgentConfig configures the agent client built by the driver.
type AgentConfig struct {
	// Type selects the prompting strategy; see agent.Type
	Type string `toml:"type" json:"type"`
	// AssistantName is the sender label shown on assistant messages
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
	// Greeting is the static first message when no persona is selected
	Greeting string `toml:"greeting" json:"greeting"`
}

// PersonaConfig configures the persona catalog and the initial selection.
type PersonaConfig struct {
	// Default is the persona selected at startup (empty = no persona)
	Default string `toml:"default" json:"default"`
	// File replaces the built-in catalog with a YAML file
	File string `toml:"file" json:"file"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies through glamour
	Markdown bool `toml:"markdown" json:"markdown"`
	// ShowTimestamps prints the sent time on each bubble
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// ServerConfig configures the web front-end.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
	// ShutdownSecs bounds graceful shutdown
	ShutdownSecs int `toml:"shutdown_secs" json:"shutdown_secs"`
	// AllowedOrigins lists extra browser origins, e.g. "https://chat.example.com",
	// that may open the websocket. Same-host origins are always accepted.
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is a zerolog level name
	Level string `toml:"level" json:"level"`
	// File is the log destination; empty logs to stderr (or the default file in the TUI)
	File string `toml:"file" json:"file"`
	// JSON disables the console writer
	JSON bool `toml:"json" json:"json"`
}

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// DefaultGreeting is the static assistant greeting used without a persona.
const DefaultGreeting = "Ready to answer your questions"

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        ProviderOpenAI,
			TimeoutSecs: 60,
		},
		Agent: AgentConfig{
			Type:          "chat-conversational-react-description",
			AssistantName: "ChatGPT",
			Greeting:      DefaultGreeting,
		},
		UI: UIConfig{
			Theme:          "auto",
			Markdown:       true,
			ShowTimestamps: true,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ShutdownSecs: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the personachat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".personachat"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used when the TUI owns the terminal.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "personachat.log"), nil
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

// Override adjusts a loaded configuration before the provider key is chosen
// and the result validated. Command-line flags are applied this way.
type Override func(*Config)

// Load loads configuration from path, or from the default location when path
// is empty. A missing default file is not an error. A .env file in the working
// directory is loaded first; it never overrides variables already set.
func Load(path string, overrides ...Override) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	if path != "" {
		return LoadFromPath(path, overrides...)
	}

	defPath, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(defPath); statErr == nil {
			return LoadFromPath(defPath, overrides...)
		}
	}
	return finish(Default(), overrides)
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		log.Warn().Strs("keys", keys).Str("path", path).Msg("unknown config keys ignored")
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string, overrides ...Override) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", path)
	}
	return finish(cfg, overrides)
}

// finish applies environment and caller overrides, then picks the provider
// key. The key is chosen last so it always matches the final provider.
func finish(cfg *Config, overrides []Override) (*Config, error) {
	cfg.ApplyEnvOverrides()
	for _, o := range overrides {
		o(cfg)
	}
	cfg.ResolveAPIKey()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// SetDefaults fills in zero values left by a partial file or overrides.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider.Name == "" {
		c.Provider.Name = defaults.Provider.Name
	}
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = defaults.Provider.TimeoutSecs
	}

	if c.Agent.Type == "" {
		c.Agent.Type = defaults.Agent.Type
	}
	if c.Agent.AssistantName == "" {
		c.Agent.AssistantName = defaults.Agent.AssistantName
	}
	if c.Agent.Greeting == "" {
		c.Agent.Greeting = defaults.Agent.Greeting
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownSecs == 0 {
		c.Server.ShutdownSecs = defaults.Server.ShutdownSecs
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML saves the configuration to a TOML file with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}
	defer file.Close()

	fmt.Fprintln(file, "# personachat configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
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

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

// Validate validates the configuration and returns any errors.
// The persona default is not checked here because the catalog may come from
// persona.file; the driver rejects unknown names.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Provider.Name {
	case ProviderOpenAI, ProviderOpenRouter, ProviderOllama:
	default:
		errs = append(errs, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("must be one of openai, openrouter, ollama (got %q)", c.Provider.Name),
		})
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "provider.temperature",
			Message: "must be between 0 and 2",
		})
	}

	if c.Provider.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "provider.timeout_secs",
			Message: "must not be negative",
		})
	}

	if c.Provider.BaseURL != "" &&
		!strings.HasPrefix(c.Provider.BaseURL, "http://") &&
		!strings.HasPrefix(c.Provider.BaseURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "provider.base_url",
			Message: "must start with http:// or https://",
		})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be dark, light or auto (got %q)", c.UI.Theme),
		})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PERSONACHAT_PROVIDER: overrides provider.name
//   - PERSONACHAT_API_KEY: overrides provider.api_key
//   - PERSONACHAT_MODEL: overrides provider.model
//   - PERSONACHAT_BASE_URL: overrides provider.base_url
//   - PERSONACHAT_PERSONA: overrides persona.default
//   - PERSONACHAT_AGENT_TYPE: overrides agent.type
func (c *Config) ApplyEnvOverrides() {
	if name := os.Getenv("PERSONACHAT_PROVIDER"); name != "" {
		c.Provider.Name = name
	}

	if key := os.Getenv("PERSONACHAT_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}

	if model := os.Getenv("PERSONACHAT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if url := os.Getenv("PERSONACHAT_BASE_URL"); url != "" {
		c.Provider.BaseURL = url
	}
	if p, ok := os.LookupEnv("PERSONACHAT_PERSONA"); ok {
		c.Persona.Default = p
	}
	if t := os.Getenv("PERSONACHAT_AGENT_TYPE"); t != "" {
		c.Agent.Type = t
	}
}

// ResolveAPIKey fills an empty api_key from the variable belonging to the
// selected provider: OPENAI_API_KEY for openai, OPENROUTER_API_KEY for
// openrouter. Call it after every override of provider.name so one
// provider's credential is never sent to another.
func (c *Config) ResolveAPIKey() {
	if c.Provider.APIKey != "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider.Name)) {
	case ProviderOpenAI, "":
		c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderOpenRouter:
		c.Provider.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its TOML path (e.g. "provider.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a configuration value from its string form.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "%s expects a boolean", key)
		}
		field.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "%s expects an integer", key)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrapf(err, "%s expects a number", key)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("%s is not a settable value", key)
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return errors.Errorf("%s is not a settable value", key)
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(key)), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return reflect.Value{}, errors.Errorf("invalid key %q (want section.name)", key)
	}

	v := reflect.ValueOf(c).Elem()
	for _, part := range parts {
		next, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, errors.Errorf("unknown config key %q", key)
		}
		v = next
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, errors.Errorf("%q is a section, not a value", key)
	}
	return v, nil
}

func fieldByTag(v reflect.Value, tag string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == tag {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Keys returns every settable key in section.name form.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		sec := t.Field(i)
		for j := 0; j < sec.Type.NumField(); j++ {
			keys = append(keys, sec.Tag.Get("toml")+"."+sec.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.AllowedOrigins != nil {
		clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	return &clone
}

// Redacted returns a copy with the API key masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns a string representation of the config for debugging.
// The API key is always redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
