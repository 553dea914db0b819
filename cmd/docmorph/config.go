// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmorph/internal/convert"
	"github.com/pdiddy/docmorph/internal/journal"
	"github.com/pdiddy/docmorph/internal/logging"
	"github.com/pdiddy/docmorph/internal/secrets"
	"github.com/pdiddy/docmorph/pkg/types"
)

// DefaultJournalPath is where conversion attempts are recorded unless
// journal.path says otherwise.
const DefaultJournalPath = "output/journal.db"

var httpURL = regexp.MustCompile(`^https?://[^\s/]+`)

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.model", types.DefaultModel)
	v.SetDefault("gemini.base_url", types.DefaultBaseURL)
	v.SetDefault("gemini.timeout", types.DefaultTimeout)
	v.SetDefault("server.addr", types.DefaultAddr)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.reading_delay", types.DefaultReadingDelay)
	v.SetDefault("server.session_ttl", types.DefaultSessionTTL)
	v.SetDefault("journal.path", DefaultJournalPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadConfig assembles a validated Config from v and resolves the API key
// from v, the environment and the secrets store.
func loadConfig(v *viper.Viper, getenv func(string) string, store secrets.Store) (types.Config, secrets.Source, error) {
	cfg := types.Config{
		Gemini: types.GeminiConfig{
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
			Timeout: v.GetDuration("gemini.timeout"),
		},
		Server: types.ServerConfig{
			Addr:         v.GetString("server.addr"),
			CORSOrigins:  v.GetStringSlice("server.cors_origins"),
			ReadingDelay: v.GetDuration("server.reading_delay"),
			SessionTTL:   v.GetDuration("server.session_ttl"),
		},
		Journal: types.JournalConfig{Path: v.GetString("journal.path")},
		Log: types.LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	key, source := secrets.ResolveAPIKey(v.GetString("gemini.api_key"), getenv, store)
	cfg.Gemini.APIKey = key

	if err := validateConfig(cfg); err != nil {
		return types.Config{}, source, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, source, nil
}

func validateConfig(cfg types.Config) error {
	g, s, l := cfg.Gemini, cfg.Server, cfg.Log
	return validation.Errors{
		"gemini": validation.ValidateStruct(&g,
			validation.Field(&g.Model, validation.Required),
			validation.Field(&g.BaseURL, validation.Required, validation.Match(httpURL)),
			validation.Field(&g.Timeout, validation.Required, validation.Min(time.Second)),
		),
		"server": validation.ValidateStruct(&s,
			validation.Field(&s.Addr, validation.Required),
			validation.Field(&s.ReadingDelay, validation.Min(time.Duration(0))),
			validation.Field(&s.SessionTTL, validation.Min(time.Duration(0))),
		),
		"log": validation.ValidateStruct(&l,
			validation.Field(&l.Level, validation.In("", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off")),
			validation.Field(&l.Format, validation.In("", "console", "json")),
		),
	}.Filter()
}

// runtime bundles what the serve and convert commands need.
type runtime struct {
	cfg     types.Config
	logger  zerolog.Logger
	backend *convert.GeminiBackend
	service *convert.Service
	journal *journal.Store
}

// newRuntime loads configuration and builds the logger, Gemini backend,
// journal and conversion service. Close releases the journal.
func newRuntime() (*runtime, error) {
	cfg, source, err := loadConfig(viper.GetViper(), os.Getenv, loadedSecrets)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log, os.Stderr)
	if cfg.Gemini.APIKey == "" {
		logger.Warn().Msg("no Gemini API key configured; conversions will fail until one is set")
	} else {
		logger.Debug().Str("source", string(source)).Msg("API key resolved")
	}

	backend := convert.NewGeminiBackend(cfg.Gemini)
	opts := []convert.Option{convert.WithLogger(logger)}

	var store *journal.Store
	if cfg.Journal.Path != "" {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("journal disabled")
		} else {
			opts = append(opts, convert.WithRecorder(store))
		}
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		service: convert.NewService(backend, opts...),
		journal: store,
	}, nil
}

func (r *runtime) Close() error {
	if r.journal != nil {
		return r.journal.Close()
	}
	return nil
}
