// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmorph/pkg/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported output formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return writeFormats(os.Stdout, asJSON)
	},
}

func writeFormats(w io.Writer, asJSON bool) error {
	infos := make([]types.FormatInfo, len(types.Formats))
	for i, f := range types.Formats {
		infos[i] = f.Info()
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t.%s\t%s\n", info.Format, info.Extension, info.Description)
	}
	return tw.Flush()
}

func init() {
	formatsCmd.Flags().Bool("json", false, "print JSON")
	rootCmd.AddCommand(formatsCmd)
}
