// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source opens the raw bytes behind a Document. Each call returns a fresh reader.
type Source interface {
	Open() (io.ReadCloser, error)
}

// BytesSource serves a Document held in memory, typically an HTTP upload.
type BytesSource []byte

// Open returns a reader over the in-memory bytes.
func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FileSource serves a Document stored on the local filesystem.
type FileSource string

// Open opens the file for reading.
func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

// Document is a user-supplied file submitted for conversion. It is immutable
// once constructed; replacing the file means constructing a new Document.
type Document struct {
	// Name is the original filename, used for display only.
	Name string `json:"name" yaml:"name"`

	// MediaType is the declared media type (e.g. "application/pdf").
	MediaType string `json:"media_type" yaml:"media_type"`

	// Size is the byte size of the payload.
	Size int64 `json:"size" yaml:"size"`

	source Source
}

// NewDocument builds a Document over an arbitrary Source. The caller is
// responsible for the size matching what the source yields.
func NewDocument(name, mediaType string, size int64, src Source) Document {
	return Document{Name: name, MediaType: mediaType, Size: size, source: src}
}

// NewDocumentFromBytes builds a Document over an in-memory payload.
func NewDocumentFromBytes(name, mediaType string, data []byte) Document {
	return NewDocument(name, mediaType, int64(len(data)), BytesSource(data))
}

// NewDocumentFromFile builds a Document over a file on disk. The size is taken
// from the file's metadata at construction time.
func NewDocumentFromFile(path, mediaType string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	return NewDocument(filepath.Base(path), mediaType, info.Size(), FileSource(path)), nil
}

// Open returns a reader over the document bytes.
func (d Document) Open() (io.ReadCloser, error) {
	if d.source == nil {
		return nil, fmt.Errorf("document %q has no content source", d.Name)
	}
	return d.source.Open()
}

// IsZero reports whether d is the zero Document (no file selected).
func (d Document) IsZero() bool {
	return d.source == nil && d.Name == "" && d.Size == 0
}
