// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ReadBuffer is a fixed-size, immutable byte region with a read cursor. It backs the
// Streamable.Read side of payload serialization: once a package's data region has been
// decompressed into memory, a ReadBuffer gives typed, bounds-checked replay over it.
type ReadBuffer struct {
	data []byte
	pos  int
}

// NewReadBuffer wraps data for sequential, bounds-checked reads. The buffer does not
// copy data; callers must not mutate the slice while the buffer is in use.
func NewReadBuffer(data []byte) *ReadBuffer {
	return &ReadBuffer{data: data}
}

// Len returns the total number of bytes in the buffer.
func (r *ReadBuffer) Len() int { return len(r.data) }

// Position returns the current read cursor offset.
func (r *ReadBuffer) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *ReadBuffer) Remaining() int { return len(r.data) - r.pos }

// Read copies the next n bytes into dst, which must have length >= n, and advances the
// cursor. It fails if fewer than n bytes remain.
func (r *ReadBuffer) Read(n int, dst []byte) error {
	if n < 0 || len(dst) < n {
		return fmt.Errorf("%w: destination too small for %d bytes", ErrInvalidArgument, n)
	}

	if r.Remaining() < n {
		return fmt.Errorf("%w: short read buffer (need %d, have %d)", ErrFormatError, n, r.Remaining())
	}

	copy(dst, r.data[r.pos:r.pos+n])
	r.pos += n

	return nil
}

// ReadBytes reads and returns the next n bytes as a fresh copy.
func (r *ReadBuffer) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if err := r.Read(n, out); err != nil {
		return nil, err
	}

	return out, nil
}

// ReadUint8 reads one byte.
func (r *ReadBuffer) ReadUint8() (uint8, error) {
	var b [1]byte
	if err := r.Read(1, b[:]); err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadBool reads one byte and reports it as a boolean (nonzero is true).
func (r *ReadBuffer) ReadBool() (bool, error) {
	v, err := r.ReadUint8()

	return v != 0, err
}

// ReadUint32 reads a little-endian uint32.
func (r *ReadBuffer) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := r.Read(4, b[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *ReadBuffer) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := r.Read(8, b[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single-precision float.
func (r *ReadBuffer) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()

	return math.Float32frombits(v), err
}

// ReadString reads a u64-length-prefixed UTF-8 string. This is the generic
// Streamable/byte-buffer convention; it is deliberately distinct from the u16-prefixed
// strings used inside the FileRecord wire form (see record.go).
func (r *ReadBuffer) ReadString() (string, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return "", err
	}

	if n > uint64(r.Remaining()) {
		return "", fmt.Errorf("%w: string length %d exceeds remaining buffer", ErrFormatError, n)
	}

	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// WriteBuffer is an owned, growable byte region with a write cursor. Capacity doubles to
// the next power of two on overflow, so staging a whole payload before compression does
// not thrash reallocation.
type WriteBuffer struct {
	data []byte
	size int
	pos  int
}

// NewWriteBuffer returns an empty, growable write buffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{}
}

// NewWriteBufferSize returns an empty write buffer pre-sized to reduce reallocation.
func NewWriteBufferSize(capacityHint int) *WriteBuffer {
	if capacityHint < 0 {
		capacityHint = 0
	}

	return &WriteBuffer{data: make([]byte, 0, capacityHint)}
}

// Len returns the number of valid bytes written so far.
func (w *WriteBuffer) Len() int { return w.size }

// Position returns the current write cursor offset.
func (w *WriteBuffer) Position() int { return w.pos }

// Bytes returns the valid written region. The returned slice aliases internal storage and
// must not be retained across further writes.
func (w *WriteBuffer) Bytes() []byte { return w.data[:w.size] }

// SetCapacity grows backing storage to at least n bytes, preserving existing contents.
func (w *WriteBuffer) SetCapacity(n int) {
	if cap(w.data) >= n {
		return
	}

	next := growCapacity(cap(w.data), n)
	grown := make([]byte, len(w.data), next)
	copy(grown, w.data)
	w.data = grown
}

// growCapacity returns the smallest power of two that is >= n, >= 2*cur, and >= 64.
func growCapacity(cur, n int) int {
	next := 64

	for next < n || next < 2*cur {
		next *= 2
	}

	return next
}

// ensureWritable grows capacity and extends size so that [pos, pos+n) is addressable.
func (w *WriteBuffer) ensureWritable(n int) {
	need := w.pos + n
	w.SetCapacity(need)

	if len(w.data) < need {
		w.data = w.data[:need]
	}

	if w.size < need {
		w.size = need
	}
}

// Write copies n bytes from src at the current cursor, growing the buffer as needed, and
// advances the cursor.
func (w *WriteBuffer) Write(n int, src []byte) error {
	if n < 0 || len(src) < n {
		return fmt.Errorf("%w: source too small for %d bytes", ErrInvalidArgument, n)
	}

	w.ensureWritable(n)
	copy(w.data[w.pos:w.pos+n], src[:n])
	w.pos += n

	return nil
}

// WriteBytes appends the full slice.
func (w *WriteBuffer) WriteBytes(src []byte) error {
	return w.Write(len(src), src)
}

// WriteUint8 writes one byte.
func (w *WriteBuffer) WriteUint8(v uint8) error {
	return w.Write(1, []byte{v})
}

// WriteBool writes a boolean as a single 0/1 byte.
func (w *WriteBuffer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}

	return w.WriteUint8(0)
}

// WriteUint32 writes a little-endian uint32.
func (w *WriteBuffer) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)

	return w.Write(4, b[:])
}

// WriteUint64 writes a little-endian uint64.
func (w *WriteBuffer) WriteUint64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)

	return w.Write(8, b[:])
}

// WriteFloat32 writes a little-endian IEEE-754 single-precision float.
func (w *WriteBuffer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteString writes a u64-length-prefixed UTF-8 string (the generic Streamable
// convention; see ReadString).
func (w *WriteBuffer) WriteString(s string) error {
	if err := w.WriteUint64(uint64(len(s))); err != nil {
		return err
	}

	return w.WriteBytes([]byte(s))
}

// WriteTo implements io.WriterTo, flushing the valid written region to dst.
func (w *WriteBuffer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.Bytes())

	return int64(n), err
}
