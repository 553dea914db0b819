// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docmorph CLI. It converts PDFs
// and images into Markdown, JSON, CSV, HTML or a summary, either one file at
// a time from the command line or through the browser UI served by
// `docmorph serve`.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmorph/internal/secrets"
	"github.com/pdiddy/docmorph/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Store

// rootCmd is the base command for the docmorph CLI.
var rootCmd = &cobra.Command{
	Use:   "docmorph",
	Short: "Convert PDFs and images into structured text with Gemini",
	Long: `docmorph sends a PDF or image to a Gemini model and returns its content as
Markdown, JSON, CSV, HTML, or a bulleted summary.

Use "convert" for files on disk or "serve" for the browser UI. Conversion
attempts are recorded in a local SQLite journal; "journal" lists them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, warnings, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./docmorph.yaml or ~/.config/docmorph/docmorph.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential files")
	pf.String("api-key", "", "Gemini API key (overrides environment and secrets)")
	pf.String("model", "", "Gemini model identifier (default "+types.DefaultModel+")")
	pf.String("journal", "", "SQLite journal path (default output/journal.db)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")

	mustBind("gemini.api_key", pf.Lookup("api-key"))
	mustBind("gemini.model", pf.Lookup("model"))
	mustBind("journal.path", pf.Lookup("journal"))
	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docmorph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docmorph"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("DOCMORPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
