// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// GeminiConfig holds settings for the Generative AI backend.
type GeminiConfig struct {
	// APIKey is the access credential. Conversion fails before any network
	// attempt when it is empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier (default "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// BaseURL is the API root (default "https://generativelanguage.googleapis.com").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout bounds the single generateContent request (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ServerConfig holds settings for the browser-facing HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// CORSOrigins lists origins allowed to call the API from another host.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// ReadingDelay is the pause between the reading and processing states
	// (default 800ms). Zero moves to processing immediately.
	ReadingDelay time.Duration `json:"reading_delay" yaml:"reading_delay"`

	// SessionTTL evicts sessions idle for longer than this (default 1h).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`
}

// JournalConfig holds settings for the conversion diagnostics journal.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `json:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is "json" or "console" (default console).
	Format string `json:"format" yaml:"format"`
}

// Config groups every setting the CLI reads from flags, environment and the
// docmorph.yaml config file.
type Config struct {
	Gemini  GeminiConfig  `json:"gemini" yaml:"gemini"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// Defaults applied by the CLI before reading configuration sources.
const (
	DefaultModel        = "gemini-2.5-flash"
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultTimeout      = 2 * time.Minute
	DefaultAddr         = ":8080"
	DefaultReadingDelay = 800 * time.Millisecond
	DefaultSessionTTL   = time.Hour
)
