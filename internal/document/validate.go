// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document validates user-supplied files and encodes them for
// transport to the conversion backend.
package document

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docmorph/pkg/types"
)

// MaxFileSize is the largest accepted document, in bytes (20 MiB).
const MaxFileSize int64 = 20 * 1024 * 1024

// Accepted media types.
const (
	MediaPDF  = "application/pdf"
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
	MediaWebP = "image/webp"
)

// User-facing rejection messages.
const (
	MsgUnsupportedFormat = "Unsupported file format. Please upload PDF, JPG, PNG, or WebP."
	MsgTooLarge          = "File is too large. Maximum size is 20MB."
)

var acceptedMediaTypes = map[string]bool{
	MediaPDF:  true,
	MediaJPEG: true,
	MediaPNG:  true,
	MediaWebP: true,
}

// extensionMediaTypes mirrors the upload picker's accept list.
var extensionMediaTypes = map[string]string{
	".pdf":  MediaPDF,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
	".png":  MediaPNG,
	".webp": MediaWebP,
}

// ValidationError reports why a candidate file was rejected. It is never
// fatal to a session; the user picks another file.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate accepts a file only if its media type is PDF, JPEG, PNG or WebP and
// its size does not exceed MaxFileSize. The media type is checked first.
func Validate(mediaType string, size int64) error {
	if !Accepted(mediaType) {
		return &ValidationError{Message: MsgUnsupportedFormat}
	}
	if size > MaxFileSize {
		return &ValidationError{Message: MsgTooLarge}
	}
	return nil
}

// ValidateDocument applies Validate to a Document's declared type and size.
func ValidateDocument(doc types.Document) error {
	return Validate(doc.MediaType, doc.Size)
}

// Accepted reports whether mediaType is in the accepted set. Parameters such
// as "; charset=binary" are ignored and the comparison is case-insensitive.
func Accepted(mediaType string) bool {
	return acceptedMediaTypes[baseMediaType(mediaType)]
}

// DetectMediaType resolves the media type of a file from its name, falling
// back to content sniffing over head. The result is not necessarily accepted;
// pass it through Validate.
func DetectMediaType(name string, head []byte) string {
	if mt, ok := extensionMediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return baseMediaType(http.DetectContentType(head))
}

// ResolveMediaType keeps a declared media type unless it is empty or the
// generic octet-stream, in which case it detects one from name and head.
func ResolveMediaType(declared, name string, head []byte) string {
	mt := baseMediaType(declared)
	if mt == "" || mt == "application/octet-stream" {
		return DetectMediaType(name, head)
	}
	return mt
}

func baseMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}
