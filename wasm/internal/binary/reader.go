package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Reader reads binary-format primitives and tracks the byte offset for
// error messages.
type Reader struct {
	r   io.ByteReader
	pos int
}

func NewReader(r io.ByteReader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Position() int {
	return r.pos
}

// Reset seeks back to pos. Only readers over a bytes.Reader can seek.
func (r *Reader) Reset(pos int) error {
	br, ok := r.r.(*bytes.Reader)
	if !ok {
		return errors.New("reset needs a bytes.Reader")
	}
	if _, err := br.Seek(int64(pos), io.SeekStart); err != nil {
		return err
	}
	r.pos = pos
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	v, err := ReadUnsigned(r, 32)
	if errors.Is(err, ErrOverflow) {
		return 0, r.wrapError(err)
	}
	return uint32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	v, err := ReadUnsigned(r, 64)
	if errors.Is(err, ErrOverflow) {
		return 0, r.wrapError(err)
	}
	return v, err
}

// ReadName reads a length-prefixed UTF-8 name.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapError(errors.New("invalid UTF-8 in name"))
	}
	return string(data), nil
}

// ReadU32LE reads a fixed-width little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadRemaining drains the reader.
func (r *Reader) ReadRemaining() ([]byte, error) {
	if br, ok := r.r.(*bytes.Reader); ok {
		return r.ReadBytes(br.Len())
	}
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
		buf.WriteByte(b)
	}
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError is a decoding failure with the section and offset it happened
// at.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("wasm: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{Position: r.pos, Section: section, Err: err}
}
