package classfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// source is implemented by the stream Reader and the in-memory Cursor so a
// structure decodes the same way from either.
type source interface {
	ReadUint8() (uint8, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadBytes(n int) ([]byte, error)
	Offset() int64
}

// Reader provides buffered reading of class file data from a stream.
type Reader struct {
	r       *bufio.Reader
	endian  Endian
	byteBuf []byte
	offset  int64
}

// NewReader creates a new class file reader.
func NewReader(r io.Reader, endian Endian) *Reader {
	return &Reader{
		r:       bufio.NewReaderSize(r, 64*1024),
		endian:  endian,
		byteBuf: make([]byte, 4),
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

func (r *Reader) fill(n int) error {
	read, err := io.ReadFull(r.r, r.byteBuf[:n])
	r.offset += int64(read)
	return streamErr(r.offset, err)
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.fill(1); err != nil {
		return 0, err
	}
	return r.byteBuf[0], nil
}

// ReadUint16 reads a 2-byte field.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.fill(2); err != nil {
		return 0, err
	}
	return r.endian.Uint16(r.byteBuf[:2]), nil
}

// ReadUint32 reads a 4-byte field.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.fill(4); err != nil {
		return 0, err
	}
	return r.endian.Uint32(r.byteBuf[:4]), nil
}

// largeRead is the size above which ReadBytes grows its buffer as data
// arrives instead of trusting a length field up front.
const largeRead = 1 << 20

// ReadBytes reads n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= largeRead {
		buf := make([]byte, n)
		read, err := io.ReadFull(r.r, buf)
		r.offset += int64(read)
		if err := streamErr(r.offset, err); err != nil {
			return nil, err
		}
		return buf, nil
	}
	var buf bytes.Buffer
	read, err := io.CopyN(&buf, r.r, int64(n))
	r.offset += read
	if err := streamErr(r.offset, err); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AtEOF reports whether the stream has no more bytes.
func (r *Reader) AtEOF() bool {
	_, err := r.r.Peek(1)
	return err != nil
}

func streamErr(offset int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("offset %d: %w", offset, ErrTruncated)
	}
	return fmt.Errorf("offset %d: %w", offset, err)
}

// Cursor reads fields from an in-memory buffer. The position is explicit
// state of the cursor value, never shared.
type Cursor struct {
	data   []byte
	pos    int
	endian Endian
}

// NewCursor returns a cursor positioned at the start of data.
func NewCursor(data []byte, endian Endian) *Cursor {
	return &Cursor{data: data, endian: endian}
}

// Offset returns the current position.
func (c *Cursor) Offset() int64 {
	return int64(c.pos)
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.data)-c.pos {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, c.pos, len(c.data)-c.pos, ErrTruncated)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadUint8 reads a single byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a 2-byte field.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return c.endian.Uint16(b), nil
}

// ReadUint32 reads a 4-byte field.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return c.endian.Uint32(b), nil
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// readUint16s reads a u2 count followed by that many u2 values.
func readUint16s(src source) ([]uint16, error) {
	n, err := src.ReadUint16()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		if out[i], err = src.ReadUint16(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
