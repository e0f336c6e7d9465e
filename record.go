// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// headerSize is the fixed on-disk size of FormatHeader: 4-byte magic + u16 version + u32 count.
const headerSize = 4 + 2 + 4

// MountID identifies a mounted directory. Zero (InvalidMountID) is never issued.
type MountID uint32

// FileID identifies one logical file. Assigned by the caller; zero (InvalidFileID) is
// reserved as "absent" and is never a valid registered id.
type FileID uint64

// FormatHeader is the fixed prefix of every package or archive container.
type FormatHeader struct {
	FormatVersion uint16
	FileCount     uint32
}

// writeFormatHeader writes the magic, version, and file count to w.
func writeFormatHeader(w io.Writer, h FormatHeader) error {
	var buf [headerSize]byte
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.FormatVersion)
	binary.LittleEndian.PutUint32(buf[6:10], h.FileCount)

	_, err := w.Write(buf[:])

	return err
}

// readFormatHeader reads and validates a FormatHeader from r. A magic mismatch is
// reported via ok=false (the file is simply not one of ours) rather than as an error;
// a recognized magic with an unsupported version is a FormatError.
func readFormatHeader(r io.Reader) (h FormatHeader, ok bool, err error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return FormatHeader{}, false, nil
		}

		return FormatHeader{}, false, fmt.Errorf("%w: read header: %w", ErrIoFailure, err)
	}

	if string(buf[0:4]) != magic {
		return FormatHeader{}, false, nil
	}

	h.FormatVersion = binary.LittleEndian.Uint16(buf[4:6])
	h.FileCount = binary.LittleEndian.Uint32(buf[6:10])

	if h.FormatVersion != FormatVersion {
		return FormatHeader{}, false, fmt.Errorf("%w: unsupported format version %d", ErrFormatError, h.FormatVersion)
	}

	return h, true, nil
}

// FileRecord is the per-file metadata stored in a container and mirrored in the file
// index. MountId is never persisted on the wire; it is assigned from the owning mount
// at load time.
type FileRecord struct {
	FileId           FileID
	MountId          MountID
	MountRelPath     string
	SourceFilename   string
	FileDependencies []FileID
	UncompressedSize uint32
	CompressedSize   uint32
	Offset           uint32
}

// maxWireStringLen bounds the u16 length prefix used for MountRelPath/SourceFilename.
const maxWireStringLen = 1<<16 - 1

// writeRecordPlaceholder writes rec, with its current Offset as a placeholder value, and returns the byte position
// at which Offset was written, so the caller can seek back and patch it once the data
// region's actual start is known (the offset-fixup pattern described in record semantics).
func writeRecordPlaceholder(w *bufio.Writer, baseOffset int64, rec FileRecord) (offsetFieldPos int64, err error) {
	pos := baseOffset

	if err := binary.Write(w, binary.LittleEndian, uint64(rec.FileId)); err != nil {
		return 0, fmt.Errorf("%w: write file id: %w", ErrIoFailure, err)
	}
	pos += 8

	n, err := writeWireString(w, rec.MountRelPath)
	if err != nil {
		return 0, err
	}
	pos += int64(n)

	n, err = writeWireString(w, rec.SourceFilename)
	if err != nil {
		return 0, err
	}
	pos += int64(n)

	if len(rec.FileDependencies) > maxWireStringLen {
		return 0, fmt.Errorf("%w: too many file dependencies (%d)", ErrInvalidArgument, len(rec.FileDependencies))
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(rec.FileDependencies))); err != nil {
		return 0, fmt.Errorf("%w: write dependency count: %w", ErrIoFailure, err)
	}
	pos += 2

	for _, dep := range rec.FileDependencies {
		if err := binary.Write(w, binary.LittleEndian, uint64(dep)); err != nil {
			return 0, fmt.Errorf("%w: write dependency id: %w", ErrIoFailure, err)
		}
		pos += 8
	}

	if err := binary.Write(w, binary.LittleEndian, rec.UncompressedSize); err != nil {
		return 0, fmt.Errorf("%w: write uncompressed size: %w", ErrIoFailure, err)
	}
	pos += 4

	if err := binary.Write(w, binary.LittleEndian, rec.CompressedSize); err != nil {
		return 0, fmt.Errorf("%w: write compressed size: %w", ErrIoFailure, err)
	}
	pos += 4

	offsetFieldPos = pos

	if err := binary.Write(w, binary.LittleEndian, rec.Offset); err != nil {
		return 0, fmt.Errorf("%w: write offset placeholder: %w", ErrIoFailure, err)
	}

	return offsetFieldPos, nil
}

// writeWireString writes a u16-length-prefixed string and returns the total bytes written.
// This is the FileRecord wire convention, distinct from the u64-prefixed Streamable
// convention used by WriteBuffer.WriteString.
func writeWireString(w io.Writer, s string) (int, error) {
	if len(s) > maxWireStringLen {
		return 0, fmt.Errorf("%w: string %q exceeds %d bytes", ErrInvalidArgument, s, maxWireStringLen)
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return 0, fmt.Errorf("%w: write string length: %w", ErrIoFailure, err)
	}

	if len(s) > 0 {
		if _, err := w.Write([]byte(s)); err != nil {
			return 0, fmt.Errorf("%w: write string bytes: %w", ErrIoFailure, err)
		}
	}

	return 2 + len(s), nil
}

// readWireString reads a u16-length-prefixed string.
func readWireString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("%w: read string length: %w", ErrFormatError, err)
	}

	n := binary.LittleEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: read string bytes: %w", ErrFormatError, err)
	}

	return string(buf), nil
}

// readRecord reads one FileRecord in wire order. MountId is left zero; the caller fills
// it in from the owning mount.
func readRecord(r io.Reader) (FileRecord, error) {
	var rec FileRecord

	var idBuf [8]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return FileRecord{}, fmt.Errorf("%w: read file id: %w", ErrFormatError, err)
	}
	rec.FileId = FileID(binary.LittleEndian.Uint64(idBuf[:]))

	mountRelPath, err := readWireString(r)
	if err != nil {
		return FileRecord{}, err
	}
	rec.MountRelPath = mountRelPath

	sourceFilename, err := readWireString(r)
	if err != nil {
		return FileRecord{}, err
	}
	rec.SourceFilename = sourceFilename

	var depCountBuf [2]byte
	if _, err := io.ReadFull(r, depCountBuf[:]); err != nil {
		return FileRecord{}, fmt.Errorf("%w: read dependency count: %w", ErrFormatError, err)
	}

	depCount := binary.LittleEndian.Uint16(depCountBuf[:])
	if depCount > 0 {
		rec.FileDependencies = make([]FileID, depCount)
		for i := range rec.FileDependencies {
			var depBuf [8]byte
			if _, err := io.ReadFull(r, depBuf[:]); err != nil {
				return FileRecord{}, fmt.Errorf("%w: read dependency id: %w", ErrFormatError, err)
			}
			rec.FileDependencies[i] = FileID(binary.LittleEndian.Uint64(depBuf[:]))
		}
	}

	var sizesBuf [12]byte
	if _, err := io.ReadFull(r, sizesBuf[:]); err != nil {
		return FileRecord{}, fmt.Errorf("%w: read sizes/offset: %w", ErrFormatError, err)
	}
	rec.UncompressedSize = binary.LittleEndian.Uint32(sizesBuf[0:4])
	rec.CompressedSize = binary.LittleEndian.Uint32(sizesBuf[4:8])
	rec.Offset = binary.LittleEndian.Uint32(sizesBuf[8:12])

	return rec, nil
}

// recordWireSize returns the exact on-disk byte size of rec's FileRecord encoding.
func recordWireSize(rec FileRecord) int64 {
	return 8 + 2 + int64(len(rec.MountRelPath)) + 2 + int64(len(rec.SourceFilename)) +
		2 + 8*int64(len(rec.FileDependencies)) + 4 + 4 + 4
}
