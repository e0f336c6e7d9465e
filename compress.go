// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// shouldCompress reports whether a write with the given request and uncompressed size
// actually engages compression. Compression is applied only when requested AND the
// uncompressed size meets CompressMinBytes; otherwise storage is always verbatim.
func shouldCompress(requested bool, uncompressedSize int) bool {
	return requested && uncompressedSize >= CompressMinBytes
}

// compressLZ4 block-compresses src and returns the compressed bytes. The destination
// buffer is sized equal to src, not LZ4's worst-case expansion bound, so CompressBlock
// itself rejects any result that would not shrink the payload: CompressedSize <=
// UncompressedSize is therefore structural, not merely checked after the fact.
func compressLZ4(src []byte) ([]byte, error) {
	dst := make([]byte, len(src))

	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 compress: %w", ErrIoFailure, err)
	}

	if n == 0 && len(src) > 0 {
		// Incompressible input: CompressBlock reports n=0 when the data would not fit
		// in a same-size destination. Caller falls back to verbatim storage in that case.
		return nil, errIncompressible
	}

	return dst[:n], nil
}

// errIncompressible signals that LZ4 could not shrink the input; it never crosses the
// package boundary and is mapped to verbatim storage by the writer.
var errIncompressible = fmt.Errorf("lz4: block did not compress")

// decompressLZ4 decompresses src into a buffer of exactly uncompressedSize bytes. A
// short or long decode result versus the declared size is reported as ErrFormatError,
// per the record invariant that CompressedSize/UncompressedSize describe the payload
// exactly.
func decompressLZ4(src []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, uncompressedSize)

	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %w", ErrFormatError, err)
	}

	if n != uncompressedSize {
		return nil, fmt.Errorf("%w: decompressed %d bytes, expected %d", ErrFormatError, n, uncompressedSize)
	}

	return dst, nil
}
