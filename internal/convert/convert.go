// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns documents into AI-generated content in a requested
// format. The Service runs the request pipeline against a Backend (Gemini in
// production); ConvertFile and ConvertBatch drive it from the command line.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/internal/export"
	"github.com/pdiddy/docmorph/pkg/types"
)

// Converter converts one request. *Service implements it; the session
// package depends on this interface so tests can script outcomes.
type Converter interface {
	Convert(ctx context.Context, req types.ConversionRequest) (types.ConversionResult, error)
}

// FileStatus is the outcome of converting one file from disk.
type FileStatus string

const (
	FileConverted FileStatus = "converted"
	FileSkipped   FileStatus = "skipped"
	FileRejected  FileStatus = "rejected"
	FileFailed    FileStatus = "failed"
)

// FileOptions controls ConvertFile and ConvertBatch.
type FileOptions struct {
	Format       types.ConversionFormat
	Instructions string

	// OutDir receives the output files (default ".").
	OutDir string

	// OutPath overrides the output path for a single file.
	OutPath string

	// Force overwrites existing output instead of skipping.
	Force bool

	// XLSX also writes a workbook next to CSV output.
	XLSX bool

	// Meta writes a YAML sidecar (<output>.meta.yaml) describing the result.
	Meta bool
}

// Metadata is the YAML sidecar written with Meta.
type Metadata struct {
	Source    string                 `yaml:"source"`
	MediaType string                 `yaml:"media_type"`
	Size      int64                  `yaml:"size"`
	Format    types.ConversionFormat `yaml:"format"`
	Output    string                 `yaml:"output"`
	Workbook  string                 `yaml:"workbook,omitempty"`
	CreatedAt string                 `yaml:"created_at"`
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Rejected  int
	Failed    int
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Rejected + r.Failed
}

// HasFailures reports whether any file was rejected or failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0 || r.Rejected > 0
}

// OutputPath returns where the converted content for input is written. A
// single file gets the default download name; in a batch each output is
// named after its input so results do not collide.
func OutputPath(input string, opts FileOptions, single bool) string {
	if single && opts.OutPath != "" {
		return opts.OutPath
	}
	dir := opts.OutDir
	if dir == "" {
		dir = "."
	}
	if single {
		return filepath.Join(dir, opts.Format.Filename())
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"."+opts.Format.Extension())
}

// LoadDocument reads path's metadata, resolves its media type and validates
// it. Validation failures are returned as *document.ValidationError.
func LoadDocument(path string) (types.Document, error) {
	head, err := readHead(path, 512)
	if err != nil {
		return types.Document{}, err
	}
	doc, err := types.NewDocumentFromFile(path, document.DetectMediaType(path, head))
	if err != nil {
		return types.Document{}, err
	}
	if err := document.ValidateDocument(doc); err != nil {
		return types.Document{}, err
	}
	return doc, nil
}

// ConvertFile converts one file on disk and writes the result to outPath,
// printing a status line to w. Existing output is skipped unless
// opts.Force is set.
func ConvertFile(ctx context.Context, c Converter, path, outPath string, opts FileOptions, w io.Writer) FileStatus {
	name := filepath.Base(path)

	if !opts.Force {
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skipped:   %s (%s already exists)\n", name, outPath)
			return FileSkipped
		}
	}

	doc, err := LoadDocument(path)
	if err != nil {
		fmt.Fprintf(w, "rejected:  %s (%s)\n", name, UserMessage(err))
		var verr *document.ValidationError
		if !errors.As(err, &verr) {
			fmt.Fprintf(w, "           %v\n", err)
		}
		return FileRejected
	}

	result, err := c.Convert(ctx, types.ConversionRequest{
		Document:     doc,
		Format:       opts.Format,
		Instructions: opts.Instructions,
	})
	if err != nil {
		fmt.Fprintf(w, "failed:    %s (%s)\n", name, UserMessage(err))
		return FileFailed
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
		return FileFailed
	}
	if err := os.WriteFile(outPath, []byte(result.Content), 0o644); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
		return FileFailed
	}

	meta := Metadata{
		Source:    path,
		MediaType: doc.MediaType,
		Size:      doc.Size,
		Format:    result.Format,
		Output:    outPath,
		CreatedAt: result.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	if opts.XLSX && result.Format == types.FormatCSV {
		xlsxPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".xlsx"
		if err := writeWorkbook(xlsxPath, result.Content); err != nil {
			fmt.Fprintf(w, "warning:   %s workbook not written: %v\n", name, err)
		} else {
			meta.Workbook = xlsxPath
		}
	}

	if opts.Meta {
		if err := writeMetadata(outPath+".meta.yaml", meta); err != nil {
			fmt.Fprintf(w, "warning:   %s metadata not written: %v\n", name, err)
		}
	}

	fmt.Fprintf(w, "converted: %s -> %s\n", name, outPath)
	return FileConverted
}

// ConvertBatch converts paths one after another, never concurrently, and
// prints a summary to w.
func ConvertBatch(ctx context.Context, c Converter, paths []string, opts FileOptions, w io.Writer) BatchResult {
	var result BatchResult
	single := len(paths) == 1
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		switch ConvertFile(ctx, c, p, OutputPath(p, opts, single), opts, w) {
		case FileConverted:
			result.Converted++
		case FileSkipped:
			result.Skipped++
		case FileRejected:
			result.Rejected++
		case FileFailed:
			result.Failed++
		}
	}
	if !single {
		fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d rejected, %d failed (total: %d)\n",
			result.Converted, result.Skipped, result.Rejected, result.Failed, result.Total())
	}
	return result
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return buf[:read], nil
}

func writeWorkbook(path, csvContent string) error {
	data, err := export.CSVToXLSX(csvContent)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeMetadata(path string, meta Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
