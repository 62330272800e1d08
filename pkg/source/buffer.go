// Package source holds the byte extent a lexer reads from, together with the
// read cursor and line/column bookkeeping.
package source

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/gtok/pkg/invariant"
	"github.com/xplshn/gtok/pkg/token"
)

// IOError reports a failure to open, stat or map an input file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

var ErrClosed = errors.New("source buffer is closed")

// Buffer is a read-only view of one input plus a cursor. The cursor never
// moves backwards and never passes len(data).
type Buffer struct {
	name   string
	data   []byte
	pos    int
	line   int
	column int
	closed bool
	unmap  func() error
}

// FromBytes wraps data without mapping anything. data must not be modified
// while the buffer is in use.
func FromBytes(name string, data []byte) *Buffer {
	return &Buffer{name: name, data: data}
}

// Open maps the whole file at path.
func Open(path string) (*Buffer, error) {
	data, unmap, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &Buffer{name: path, data: data, unmap: unmap}, nil
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Len() int     { return len(b.data) }
func (b *Buffer) Offset() int  { return b.pos }
func (b *Buffer) Line() int    { return b.line }
func (b *Buffer) Column() int  { return b.column }
func (b *Buffer) Closed() bool { return b.closed }

func (b *Buffer) Bytes() []byte {
	b.checkOpen()
	return b.data
}

// Pos returns the cursor position; Len is left for the caller to fill in.
func (b *Buffer) Pos() token.Pos {
	return token.Pos{Offset: b.pos, Line: b.line, Column: b.column}
}

func (b *Buffer) InBounds() bool {
	b.checkOpen()
	return b.pos < len(b.data)
}

// HasSpace reports whether at least n bytes remain after the cursor.
func (b *Buffer) HasSpace(n int) bool {
	b.checkOpen()
	return len(b.data)-b.pos >= n
}

// Current is Peek(0).
func (b *Buffer) Current() byte { return b.Peek(0) }

// Peek reads the byte at cursor+offset without consuming it. The caller must
// have checked HasSpace(offset+1); reading past the end panics.
func (b *Buffer) Peek(offset int) byte {
	b.checkOpen()
	invariant.Precondition(offset >= 0 && b.pos+offset < len(b.data),
		"peek at %d+%d past end of %q (len %d)", b.pos, offset, b.name, len(b.data))
	return b.data[b.pos+offset]
}

// Advance consumes one byte. At the end it returns false and changes nothing.
func (b *Buffer) Advance() (byte, bool) {
	b.checkOpen()
	if !b.InBounds() {
		return 0, false
	}
	ch := b.data[b.pos]
	if ch == '\n' {
		b.line++
		b.column = 0
	} else {
		b.column++
	}
	b.pos++
	return ch, true
}

// Match consumes the current byte if it equals want.
func (b *Buffer) Match(want byte) bool {
	if !b.InBounds() || b.data[b.pos] != want {
		return false
	}
	b.Advance()
	return true
}

// Slice returns the bytes in [from, cursor).
func (b *Buffer) Slice(from int) []byte {
	b.checkOpen()
	invariant.InRange(from, 0, b.pos, "slice start")
	return b.data[from:b.pos]
}

// Sum64 is the xxhash of the whole content.
func (b *Buffer) Sum64() uint64 {
	b.checkOpen()
	return xxhash.Sum64(b.data)
}

// Close releases the mapping. Calling it again is a no-op.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	var err error
	if b.unmap != nil {
		err = b.unmap()
		b.unmap = nil
	}
	b.data = nil
	if err != nil {
		return &IOError{Op: "unmap", Path: b.name, Err: err}
	}
	return nil
}

func (b *Buffer) checkOpen() {
	invariant.Precondition(!b.closed, "%v: %s", ErrClosed, b.name)
}
