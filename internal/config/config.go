package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Locale is the BCP-47 language tag handed to the recognition engine.
	Locale string `json:"locale"`

	// DebounceMillis is the coalescing window for persistence writes.
	// Mutations within the window collapse into one write with latest values.
	DebounceMillis int `json:"debounce_millis"`

	// RestartDelayMillis is the pause before auto-restarting a recognition
	// engine that ended on its own. Keeps a flapping engine from restart storms.
	RestartDelayMillis int `json:"restart_delay_millis"`

	// MaxDurationSeconds bounds a session. Reaching it force-stops recording.
	MaxDurationSeconds int `json:"max_duration_seconds"`

	// MinWordCount is the short-content threshold. Stopping below it asks
	// for confirmation instead of proceeding straight to protocol generation.
	MinWordCount int `json:"min_word_count"`

	// GeneratorEndpoint is the chat-completions URL for protocol generation.
	GeneratorEndpoint string `json:"generator_endpoint,omitempty"`

	// GeneratorModel names the model requested from the generation endpoint.
	GeneratorModel string `json:"generator_model,omitempty"`

	// GeneratorAPIKey authorizes calls to the generation endpoint.
	// The PROTOKOLL_GENERATOR_API_KEY environment variable takes precedence.
	GeneratorAPIKey string `json:"generator_api_key,omitempty"`

	// MailEndpoint is the URL of the email-delivery function.
	MailEndpoint string `json:"mail_endpoint,omitempty"`

	// MailAPIKey authorizes calls to the email-delivery function.
	MailAPIKey string `json:"mail_api_key,omitempty"`

	// MailFrom is the sender shown on delivered protocol emails.
	MailFrom string `json:"mail_from,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Locale:             "sv-SE",
		DebounceMillis:     1500,
		RestartDelayMillis: 100,
		MaxDurationSeconds: 7200,
		MinWordCount:       30,
		GeneratorEndpoint:  "https://api.groq.com/openai/v1/chat/completions",
		GeneratorModel:     "llama-3.3-70b-versatile",
		MailEndpoint:       "https://api.resend.com/emails",
		MailFrom:           "Protokoll <send@wby.se>",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.protokoll.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)

	// Environment wins over file for secrets so keys stay out of config.json.
	if key := os.Getenv("PROTOKOLL_GENERATOR_API_KEY"); key != "" {
		merged.GeneratorAPIKey = key
	}
	if key := os.Getenv("PROTOKOLL_MAIL_API_KEY"); key != "" {
		merged.MailAPIKey = key
	}

	return merged, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Locale = overlay.Locale
	if result.Locale == "" {
		result.Locale = base.Locale
	}

	result.DebounceMillis = overlay.DebounceMillis
	if result.DebounceMillis == 0 {
		result.DebounceMillis = base.DebounceMillis
	}

	result.RestartDelayMillis = overlay.RestartDelayMillis
	if result.RestartDelayMillis == 0 {
		result.RestartDelayMillis = base.RestartDelayMillis
	}

	result.MaxDurationSeconds = overlay.MaxDurationSeconds
	if result.MaxDurationSeconds == 0 {
		result.MaxDurationSeconds = base.MaxDurationSeconds
	}

	result.MinWordCount = overlay.MinWordCount
	if result.MinWordCount == 0 {
		result.MinWordCount = base.MinWordCount
	}

	result.GeneratorEndpoint = overlay.GeneratorEndpoint
	if result.GeneratorEndpoint == "" {
		result.GeneratorEndpoint = base.GeneratorEndpoint
	}

	result.GeneratorModel = overlay.GeneratorModel
	if result.GeneratorModel == "" {
		result.GeneratorModel = base.GeneratorModel
	}

	result.GeneratorAPIKey = overlay.GeneratorAPIKey
	if result.GeneratorAPIKey == "" {
		result.GeneratorAPIKey = base.GeneratorAPIKey
	}

	result.MailEndpoint = overlay.MailEndpoint
	if result.MailEndpoint == "" {
		result.MailEndpoint = base.MailEndpoint
	}

	result.MailAPIKey = overlay.MailAPIKey
	if result.MailAPIKey == "" {
		result.MailAPIKey = base.MailAPIKey
	}

	result.MailFrom = overlay.MailFrom
	if result.MailFrom == "" {
		result.MailFrom = base.MailFrom
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
