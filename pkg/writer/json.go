// Package writer encodes reports as JSON, optionally gzipped.
package writer

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer encodes a value of type T.
type Writer[T any] interface {
	Write(data T, w io.Writer) error
	WriteToFile(data T, path string) error
}

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent is the per-level indentation. Empty means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to w.
func (j *JSONWriter[T]) Write(data T, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if j.Indent != "" {
		encoder.SetIndent("", j.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return nil
}

// WriteToFile writes the data as JSON to a file.
func (j *JSONWriter[T]) WriteToFile(data T, path string) error {
	return writeFile(path, func(w io.Writer) error { return j.Write(data, w) })
}

// GzipWriter writes data as gzipped JSON.
type GzipWriter[T any] struct {
	// Level is the gzip compression level.
	Level int
}

// NewGzipWriter creates a new gzip writer with default compression.
func NewGzipWriter[T any]() *GzipWriter[T] {
	return &GzipWriter[T]{Level: gzip.DefaultCompression}
}

// Write writes the data as gzipped JSON to w.
func (g *GzipWriter[T]) Write(data T, w io.Writer) error {
	gz, err := gzip.NewWriterLevel(w, g.Level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return gz.Close()
}

// WriteToFile writes the data as gzipped JSON to a file.
func (g *GzipWriter[T]) WriteToFile(data T, path string) error {
	return writeFile(path, func(w io.Writer) error { return g.Write(data, w) })
}

// ForPath picks a gzip writer for ".gz" paths and a pretty JSON writer
// otherwise.
func ForPath[T any](path string) Writer[T] {
	if strings.HasSuffix(path, ".gz") {
		return NewGzipWriter[T]()
	}
	return NewPrettyJSONWriter[T]()
}

func writeFile(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
