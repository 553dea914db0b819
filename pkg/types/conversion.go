// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ConversionFormat selects the output representation requested from the model.
type ConversionFormat string

const (
	FormatMarkdown ConversionFormat = "Markdown"
	FormatJSON     ConversionFormat = "JSON"
	FormatCSV      ConversionFormat = "CSV"
	FormatHTML     ConversionFormat = "HTML"
	FormatSummary  ConversionFormat = "Summary"
)

// DefaultFormat is the format a fresh or reset session starts with.
const DefaultFormat = FormatMarkdown

// Formats lists every ConversionFormat in presentation order.
var Formats = []ConversionFormat{FormatMarkdown, FormatJSON, FormatCSV, FormatHTML, FormatSummary}

// FormatInfo describes a format for presentation layers.
type FormatInfo struct {
	Format      ConversionFormat `json:"format" yaml:"format"`
	Description string           `json:"description" yaml:"description"`
	Extension   string           `json:"extension" yaml:"extension"`
}

var formatDetails = map[ConversionFormat]struct {
	ext, contentType, desc string
}{
	FormatMarkdown: {"md", "text/markdown; charset=utf-8", "Clean text with formatting"},
	FormatJSON:     {"json", "application/json; charset=utf-8", "Structured data"},
	FormatCSV:      {"csv", "text/csv; charset=utf-8", "Spreadsheet ready"},
	FormatHTML:     {"html", "text/html; charset=utf-8", "Web ready content"},
	FormatSummary:  {"txt", "text/plain; charset=utf-8", "Key points only"},
}

// Valid reports whether f is one of the known formats.
func (f ConversionFormat) Valid() bool {
	_, ok := formatDetails[f]
	return ok
}

// Extension returns the output file extension for f, "txt" for unknown formats.
func (f ConversionFormat) Extension() string {
	if d, ok := formatDetails[f]; ok {
		return d.ext
	}
	return "txt"
}

// Filename returns the default download name for a result in format f.
func (f ConversionFormat) Filename() string {
	return "converted-document." + f.Extension()
}

// ContentType returns the media type used when serving a result in format f.
func (f ConversionFormat) ContentType() string {
	if d, ok := formatDetails[f]; ok {
		return d.contentType
	}
	return "text/plain; charset=utf-8"
}

// Info returns presentation details for f.
func (f ConversionFormat) Info() FormatInfo {
	return FormatInfo{Format: f, Description: formatDetails[f].desc, Extension: f.Extension()}
}

// ParseFormat matches s against the known formats case-insensitively. The
// file extension ("md", "txt") is accepted as an alias.
func ParseFormat(s string) (ConversionFormat, error) {
	s = strings.TrimSpace(s)
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) || strings.EqualFold(s, f.Extension()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of markdown, json, csv, html, summary)", s)
}

// ConversionRequest is one conversion attempt: a document, the requested
// format, and optional free-text instructions from the user.
type ConversionRequest struct {
	Document     Document
	Format       ConversionFormat
	Instructions string
}

// ConversionResult is the normalized model output for one request.
type ConversionResult struct {
	Content   string           `json:"content" yaml:"-"`
	Format    ConversionFormat `json:"format" yaml:"format"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
}

// IsZero reports whether no result has been produced.
func (r ConversionResult) IsZero() bool {
	return r.Format == "" && r.Content == "" && r.CreatedAt.IsZero()
}
