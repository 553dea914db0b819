// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmorph/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent conversion attempts",
	Long: `Journal reads the diagnostics journal and lists recent conversion attempts,
newest first, with their outcome and the underlying failure cause. The cause
is never shown in the UI; this is where to look when a conversion fails.`,
	RunE: runJournal,
}

// journalReport is the YAML/JSON shape printed by the journal command.
type journalReport struct {
	Counts   map[journal.Outcome]int `json:"counts" yaml:"counts"`
	Attempts []journal.Attempt       `json:"attempts" yaml:"attempts"`
}

func runJournal(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	outcome, _ := cmd.Flags().GetString("outcome")
	asJSON, _ := cmd.Flags().GetBool("json")

	path := viper.GetString("journal.path")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no journal at %s: %w", path, err)
	}

	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	attempts, err := store.Recent(ctx, journal.QueryOptions{Limit: limit, Outcome: journal.Outcome(outcome)})
	if err != nil {
		return err
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	return writeJournal(os.Stdout, journalReport{Counts: counts, Attempts: attempts}, asJSON)
}

func writeJournal(w io.Writer, report journalReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	outcomes := make([]string, 0, len(report.Counts))
	for o := range report.Counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-20s %d\n", o+":", report.Counts[journal.Outcome(o)])
	}
	if len(report.Attempts) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report.Attempts); err != nil {
		return fmt.Errorf("encoding attempts: %w", err)
	}
	return enc.Close()
}

func init() {
	journalCmd.Flags().Int("limit", 20, "maximum number of attempts to list")
	journalCmd.Flags().String("outcome", "", "only list attempts with this outcome (success, empty, credential_missing, encoding_error, remote_error)")
	journalCmd.Flags().Bool("json", false, "print JSON instead of YAML")

	rootCmd.AddCommand(journalCmd)
}
