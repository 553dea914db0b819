// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmorph/internal/journal"
	"github.com/pdiddy/docmorph/internal/secrets"
	"github.com/pdiddy/docmorph/pkg/types"
)

func newTestViper(set map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range set {
		v.Set(k, val)
	}
	return v
}

func noEnv(string) string { return "" }

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, source, err := loadConfig(newTestViper(nil), noEnv, nil)
	require.NoError(t, err)

	assert.Equal(t, types.DefaultModel, cfg.Gemini.Model)
	assert.Equal(t, types.DefaultBaseURL, cfg.Gemini.BaseURL)
	assert.Equal(t, types.DefaultTimeout, cfg.Gemini.Timeout)
	assert.Equal(t, types.DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, types.DefaultReadingDelay, cfg.Server.ReadingDelay)
	assert.Equal(t, types.DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.Equal(t, DefaultJournalPath, cfg.Journal.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Gemini.APIKey)
	assert.Equal(t, secrets.SourceNone, source)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, _, err := loadConfig(newTestViper(map[string]any{
		"gemini.model":         "gemini-2.5-pro",
		"server.reading_delay": "0s",
		"server.cors_origins":  []string{"http://localhost:5173"},
		"log.format":           "json",
	}), noEnv, nil)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, time.Duration(0), cfg.Server.ReadingDelay)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_APIKeyResolution(t *testing.T) {
	env := map[string]string{"GEMINI_API_KEY": "from-env"}
	getenv := func(k string) string { return env[k] }
	store := secrets.Store{secrets.GeminiKeyFile: "from-file"}

	tests := []struct {
		name       string
		explicit   string
		getenv     func(string) string
		store      secrets.Store
		wantKey    string
		wantSource secrets.Source
	}{
		{"explicit wins", "from-flag", getenv, store, "from-flag", secrets.SourceConfig},
		{"environment before file", "", getenv, store, "from-env", secrets.Source("env GEMINI_API_KEY")},
		{"file last", "", noEnv, store, "from-file", secrets.SourceFile},
		{"none", "", noEnv, nil, "", secrets.SourceNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper(nil)
			if tt.explicit != "" {
				v.Set("gemini.api_key", tt.explicit)
			}
			cfg, source, err := loadConfig(v, tt.getenv, tt.store)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.Gemini.APIKey)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{"base url", map[string]any{"gemini.base_url": "generativelanguage"}, "base_url"},
		{"empty model", map[string]any{"gemini.model": ""}, "model"},
		{"short timeout", map[string]any{"gemini.timeout": "10ms"}, "timeout"},
		{"log format", map[string]any{"log.format": "xml"}, "format"},
		{"log level", map[string]any{"log.level": "loud"}, "level"},
		{"negative delay", map[string]any{"server.reading_delay": "-1s"}, "reading_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadConfig(newTestViper(tt.set), noEnv, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteFormats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFormats(&buf, false))
	out := buf.String()
	for _, f := range types.Formats {
		assert.Contains(t, out, string(f))
	}
	assert.Contains(t, out, ".md")

	buf.Reset()
	require.NoError(t, writeFormats(&buf, true))
	assert.Contains(t, buf.String(), `"format": "CSV"`)
}

func TestWriteJournal(t *testing.T) {
	report := journalReport{
		Counts: map[journal.Outcome]int{journal.OutcomeSuccess: 2, journal.OutcomeRemoteError: 1},
		Attempts: []journal.Attempt{{
			ID:      "a1",
			Format:  types.FormatJSON,
			Outcome: journal.OutcomeRemoteError,
			Cause:   "status 503",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJournal(&buf, report, false))
	out := buf.String()
	assert.Contains(t, out, "success:")
	assert.Contains(t, out, "remote_error:")
	assert.Contains(t, out, "cause: status 503")

	buf.Reset()
	require.NoError(t, writeJournal(&buf, report, true))
	assert.Contains(t, buf.String(), `"outcome": "remote_error"`)
}
