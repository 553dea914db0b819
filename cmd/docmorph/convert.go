// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmorph/internal/convert"
	"github.com/pdiddy/docmorph/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file> [files...]",
	Short: "Convert PDFs and images to Markdown, JSON, CSV, HTML or a summary",
	Long: `Convert validates each file (PDF, JPG, PNG or WebP up to 20MB), sends it to
Gemini with a prompt for the requested format, and writes the result.

A single file is written to converted-document.<ext> in --out-dir (or to
--out); several files are written to <name>.<ext>. Existing outputs are
skipped unless --force is given. Files are converted one at a time.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := types.ParseFormat(formatName)
	if err != nil {
		return err
	}

	opts := convert.FileOptions{Format: format}
	opts.Instructions, _ = cmd.Flags().GetString("instructions")
	opts.OutDir, _ = cmd.Flags().GetString("out-dir")
	opts.OutPath, _ = cmd.Flags().GetString("out")
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.XLSX, _ = cmd.Flags().GetBool("xlsx")
	opts.Meta, _ = cmd.Flags().GetBool("meta")
	toStdout, _ := cmd.Flags().GetBool("stdout")

	if opts.OutPath != "" && len(args) > 1 {
		return fmt.Errorf("--out only applies to a single file; use --out-dir for %d files", len(args))
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if toStdout {
		return convertToStdout(ctx, rt.service, args, opts)
	}

	result := convert.ConvertBatch(ctx, rt.service, args, opts, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) rejected, %d failed", result.Rejected, result.Failed)
	}
	return nil
}

// convertToStdout prints each result instead of writing files.
func convertToStdout(ctx context.Context, c convert.Converter, paths []string, opts convert.FileOptions) error {
	for _, p := range paths {
		doc, err := convert.LoadDocument(p)
		if err != nil {
			return fmt.Errorf("%s: %s", p, convert.UserMessage(err))
		}
		res, err := c.Convert(ctx, types.ConversionRequest{
			Document:     doc,
			Format:       opts.Format,
			Instructions: opts.Instructions,
		})
		if err != nil {
			return fmt.Errorf("%s: %s", p, convert.UserMessage(err))
		}
		fmt.Fprintln(os.Stdout, res.Content)
	}
	return nil
}

func init() {
	f := convertCmd.Flags()
	f.StringP("format", "f", string(types.DefaultFormat), "output format: markdown, json, csv, html, summary")
	f.StringP("instructions", "i", "", "additional instructions for the model")
	f.StringP("out", "o", "", "output path for a single file")
	f.String("out-dir", ".", "directory for output files")
	f.Bool("force", false, "overwrite existing output")
	f.Bool("stdout", false, "print results instead of writing files")
	f.Bool("xlsx", false, "also write an Excel workbook for CSV output")
	f.Bool("meta", false, "write a YAML sidecar describing each result")

	rootCmd.AddCommand(convertCmd)
}
