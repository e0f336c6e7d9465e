// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

// Streamable is the capability a user payload must satisfy to be written by WriteFile or
// hydrated by ReadFile. Its methods play the roles of io.WriterTo/io.ReaderFrom, but are
// named WriteStream/ReadStream and operate on this package's own typed buffers rather than
// io.Writer/io.Reader, since payload serialization here is always a single in-memory pass
// bounded by the package's uncompressed size.
type Streamable interface {
	// WriteStream serializes the receiver's fields into w, in field declaration order.
	WriteStream(w *WriteBuffer) error
	// ReadStream deserializes into the receiver's fields from r, in the same order
	// WriteStream used. Implementations should not retain r past the call.
	ReadStream(r *ReadBuffer) error
}

// WriteVector writes a u64-length-prefixed sequence of Streamable elements.
func WriteVector[T Streamable](w *WriteBuffer, items []T) error {
	if err := w.WriteUint64(uint64(len(items))); err != nil {
		return err
	}

	for i := range items {
		if err := items[i].WriteStream(w); err != nil {
			return err
		}
	}

	return nil
}

// ReadVector reads a u64-length-prefixed sequence of Streamable elements, calling newItem
// to construct each element before it is hydrated.
func ReadVector[T Streamable](r *ReadBuffer, newItem func() T) ([]T, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		item := newItem()
		if err := item.ReadStream(r); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}
