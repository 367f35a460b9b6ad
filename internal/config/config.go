// Package config loads Ensemble's settings with viper: built-in defaults,
// then an optional YAML file, then environment variables. Every key can be
// set as ENSEMBLE_<SECTION>_<KEY>; the credentials also accept the
// variable names of the hosted deployment (OPENAI_API_KEY and friends).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/HendryAvila/ensemble/internal/docstore"
	"github.com/HendryAvila/ensemble/internal/llm"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/speech"
	"github.com/HendryAvila/ensemble/internal/tracker"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ENSEMBLE"

// Config represents the complete Ensemble configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Docs      DocsConfig      `mapstructure:"docs"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP API and where clients find it
type ServerConfig struct {
	// Addr is the listen address of `ensemble serve`
	Addr string `mapstructure:"addr"`
	// URL is the API root used by `ensemble chat`
	URL string `mapstructure:"url"`
}

// LLMConfig selects the OpenAI-compatible model endpoint
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// DocsConfig points at the Google Workspace MCP server
type DocsConfig struct {
	MCPURL string `mapstructure:"mcp_url"`
	// Attempts is how many times a create_doc call is tried, reconnecting
	// in between (minimum 1)
	Attempts int `mapstructure:"attempts"`
}

// TrackerConfig holds the ClickUp credentials
type TrackerConfig struct {
	APIKey  string `mapstructure:"api_key"`
	ListID  string `mapstructure:"list_id"`
	BaseURL string `mapstructure:"base_url"`
}

// SpeechConfig controls ElevenLabs synthesis and local playback
type SpeechConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	BaseURL string `mapstructure:"base_url"`
	// Player is the command audio is piped into, e.g. "mpg123 -q -".
	// Empty disables playback in the terminal client.
	Player string `mapstructure:"player"`
}

// TemplatesConfig locates the task templates file
type TemplatesConfig struct {
	// Path to a templates.yaml; empty uses the built-in templates
	Path string `mapstructure:"path"`
	// Watch reloads the file when it changes
	Watch bool `mapstructure:"watch"`
}

// JournalConfig locates the activity journal
type JournalConfig struct {
	// Path to a SQLite file; empty keeps the journal in memory
	Path string `mapstructure:"path"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File receives logs; empty means stderr
	File string `mapstructure:"file"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":3000",
			URL:  "http://localhost:3000",
		},
		LLM: LLMConfig{
			BaseURL: llm.DefaultBaseURL,
			Model:   llm.DefaultModel,
		},
		Docs: DocsConfig{
			MCPURL:   "http://localhost:8000",
			Attempts: 1,
		},
		Tracker: TrackerConfig{
			BaseURL: tracker.DefaultBaseURL,
		},
		Speech: SpeechConfig{
			VoiceID: speech.DefaultVoiceID,
			BaseURL: speech.DefaultBaseURL,
			Player:  "mpg123 -q -",
		},
		Templates: TemplatesConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(logging.LevelInfo),
		},
	}
}

// legacyEnv maps keys to the environment variable names used by the
// hosted deployment. The ENSEMBLE_ form takes precedence.
var legacyEnv = map[string]string{
	"llm.api_key":     "OPENAI_API_KEY",
	"docs.mcp_url":    "GOOGLE_MCP_BASE_URL",
	"tracker.api_key": "CLICKUP_API_KEY",
	"tracker.list_id": "CLICKUP_LIST_ID",
	"speech.api_key":  "ELEVENLABS_API_KEY",
	"speech.voice_id": "ELEVENLABS_VOICE_ID",
}

// SetDefaults registers default values and environment bindings with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.url", defaults.Server.URL)

	v.SetDefault("llm.api_key", defaults.LLM.APIKey)
	v.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	v.SetDefault("llm.model", defaults.LLM.Model)

	v.SetDefault("docs.mcp_url", defaults.Docs.MCPURL)
	v.SetDefault("docs.attempts", defaults.Docs.Attempts)

	v.SetDefault("tracker.api_key", defaults.Tracker.APIKey)
	v.SetDefault("tracker.list_id", defaults.Tracker.ListID)
	v.SetDefault("tracker.base_url", defaults.Tracker.BaseURL)

	v.SetDefault("speech.api_key", defaults.Speech.APIKey)
	v.SetDefault("speech.voice_id", defaults.Speech.VoiceID)
	v.SetDefault("speech.base_url", defaults.Speech.BaseURL)
	v.SetDefault("speech.player", defaults.Speech.Player)

	v.SetDefault("templates.path", defaults.Templates.Path)
	v.SetDefault("templates.watch", defaults.Templates.Watch)

	v.SetDefault("journal.path", defaults.Journal.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetEnvPrefix(EnvPrefix)
	// Replace dots with underscores for nested keys in env vars
	// e.g., ENSEMBLE_LLM_API_KEY for llm.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy)
	}
}

// ReadFile points v at the config file and reads it. An explicit path must
// exist; otherwise the default locations are searched and a missing file
// is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !asNotFound(err, &notFound) {
		return err
	}
	return nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ensemble")
	}
	// Fall back to ~/.config/ensemble
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ensemble"
	}
	return filepath.Join(home, ".config", "ensemble")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PlayerCommand splits the configured player into argv.
func (c SpeechConfig) PlayerCommand() []string {
	return strings.Fields(c.Player)
}

// Retry returns the document store retry policy.
func (c DocsConfig) Retry() docstore.RetryPolicy {
	return docstore.RetryPolicy{Attempts: c.Attempts}
}
