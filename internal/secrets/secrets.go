// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files and
// resolves the Gemini API key from the configured sources. Each file in the
// directory is one secret: the filename is the key name and the trimmed file
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the secrets directory created by `mage init`.
const DefaultDir = ".secrets"

// GeminiKeyFile is the secrets file holding the Gemini API key.
const GeminiKeyFile = "gemini-api-key"

// EnvKeys are the environment variables consulted for the API key, in order.
var EnvKeys = []string{"DOCMORPH_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"}

// Store maps secret names to values.
type Store map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Store. Unreadable files are skipped and reported in the
// returned warnings.
func Load(dir string) (Store, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil, nil
		}
		return nil, nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	var (
		store    = make(Store)
		warnings []string
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("could not read secret %s: %v", name, err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, warnings, nil
}

// Source names where a resolved API key came from.
type Source string

const (
	SourceNone   Source = ""
	SourceConfig Source = "config"
	SourceFile   Source = "secrets file"
)

// ResolveAPIKey picks the Gemini API key from, in order: the explicit
// flag/config value, EnvKeys via getenv, and the GeminiKeyFile secret. It
// returns the key and where it came from; an empty key means none is set.
func ResolveAPIKey(explicit string, getenv func(string) string, store Store) (string, Source) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, SourceConfig
	}
	if getenv != nil {
		for _, name := range EnvKeys {
			if v := strings.TrimSpace(getenv(name)); v != "" {
				return v, Source("env " + name)
			}
		}
	}
	if v := store[GeminiKeyFile]; v != "" {
		return v, SourceFile
	}
	return "", SourceNone
}
