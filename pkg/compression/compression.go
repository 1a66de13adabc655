// Package compression wraps gzip and zstd for class file inputs and outputs.
//
// Inputs are sniffed by magic bytes: anything that is neither gzip nor zstd
// passes through unchanged, so plain class files need no special handling.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm used.
type Type uint8

const (
	TypeNone Type = iota
	TypeGzip
	TypeZstd
)

// String returns the configuration name of the type.
func (t Type) String() string {
	switch t {
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file suffix conventionally appended for the type.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	default:
		return ""
	}
}

// ParseType parses "none", "gzip" or "zstd". The empty string is "none".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TypeNone, nil
	case "gzip", "gz":
		return TypeGzip, nil
	case "zstd", "zst":
		return TypeZstd, nil
	default:
		return TypeNone, fmt.Errorf("unknown compression type: %q (valid: none, gzip, zstd)", s)
	}
}

// Compressor compresses and decompresses whole buffers.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Type() Type
}

// GzipCompressor implements Compressor using gzip.
type GzipCompressor struct {
	level int
}

// NewGzipCompressor creates a gzip compressor at gzip.DefaultCompression.
func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{level: gzip.DefaultCompression}
}

// Compress compresses data using gzip.
func (c *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write gzip data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses gzip data.
func (c *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (c *GzipCompressor) Type() Type { return TypeGzip }

// ZstdCompressor implements Compressor using zstd. It is safe for concurrent
// use; call Close when done.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCompressor creates a zstd compressor at the default speed.
func NewZstdCompressor() (*ZstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompressor{encoder: encoder, decoder: decoder}, nil
}

// Compress compresses data using zstd.
func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decompresses zstd data.
func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	return c.decoder.DecodeAll(data, nil)
}

func (c *ZstdCompressor) Type() Type { return TypeZstd }

// Close releases resources used by the compressor.
func (c *ZstdCompressor) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

// NoOpCompressor passes data through unchanged.
type NoOpCompressor struct{}

func (NoOpCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoOpCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoOpCompressor) Type() Type                             { return TypeNone }

// New creates a compressor by type.
func New(t Type) (Compressor, error) {
	switch t {
	case TypeZstd:
		return NewZstdCompressor()
	case TypeGzip:
		return NewGzipCompressor(), nil
	case TypeNone:
		return NoOpCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}

// Close closes a compressor if it holds resources.
func Close(c Compressor) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

// DetectType detects the compression type from magic bytes.
func DetectType(data []byte) Type {
	switch {
	case len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd:
		return TypeZstd
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return TypeGzip
	default:
		return TypeNone
	}
}

// AutoDecompress decompresses gzip or zstd data and returns anything else
// unchanged, along with the detected type.
func AutoDecompress(data []byte) ([]byte, Type, error) {
	t := DetectType(data)
	if t == TypeNone {
		return data, TypeNone, nil
	}
	comp, err := New(t)
	if err != nil {
		return nil, t, err
	}
	defer Close(comp)

	out, err := comp.Decompress(data)
	if err != nil {
		return nil, t, fmt.Errorf("%s: %w", t, err)
	}
	return out, t, nil
}
