// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/woozymasta/pathrules"
)

// FilesystemStats is a read-only snapshot of Filesystem activity, mirroring the
// teacher's own run-statistics structs (PackResult, PackEntryProgress) without adding any
// new domain behavior.
type FilesystemStats struct {
	MountCount           int
	IndexedFileCount     int
	HotReloadDeliveries  uint64
}

// Filesystem is the public facade: mounts, the file index, the import dispatcher, and
// hot-reload delivery, all bound together. Every exported method that runs on the
// cooperative facade thread assumes it is the only caller in flight at a time (see
// SPEC_FULL.md §5); only the per-mount watcher goroutines run concurrently with it, and
// they only ever write to watchQueue, never to mounts or the index directly.
type Filesystem struct {
	opts FilesystemOptions
	log  zerolog.Logger

	mounts    *mountRegistry
	index     *fileIndex
	importers *importerTable

	watchers map[MountID]*mountWatcher
	queue    *watchQueue

	onReimport func(FileID)
	stats      FilesystemStats
}

// NewFilesystem returns an empty Filesystem ready for MountDir calls.
func NewFilesystem(opts FilesystemOptions) *Filesystem {
	opts.applyDefaults()

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Filesystem{
		opts:      opts,
		log:       log,
		mounts:    newMountRegistry(),
		index:     newFileIndex(),
		importers: newImporterTable(),
		watchers:  make(map[MountID]*mountWatcher),
		queue:     newWatchQueue(opts.HotReloadQueueCapacity),
	}
}

// MountDir registers rootDirPath as a new mount and scans it for existing packages. It
// fails if rootDirPath does not exist or is not a directory.
func (fsys *Filesystem) MountDir(rootDirPath string, allowUnmount bool) (MountID, error) {
	mt, err := fsys.mounts.add(rootDirPath, allowUnmount)
	if err != nil {
		return InvalidMountID, err
	}

	records, err := gatherFilesInMount(mt.id, rootDirPath)
	if err != nil {
		// Roll back the mount: a scan failure means the mount never becomes usable.
		delete(fsys.mounts.byID, mt.id)

		return InvalidMountID, fmt.Errorf("%w: scan mount %q: %w", ErrIoFailure, rootDirPath, err)
	}

	for _, rec := range records {
		fsys.index.put(rec)
	}

	fsys.stats.MountCount = len(fsys.mounts.byID)
	fsys.stats.IndexedFileCount = len(fsys.index.byID)

	fsys.log.Debug().Uint32("mount_id", uint32(mt.id)).Str("root", rootDirPath).Int("files", len(records)).Msg("mounted")

	if !fsys.opts.DisableWatcher {
		w, err := startMountWatcher(mt.id, rootDirPath, fsys.queue, fsys.log, fsys.opts.WatcherDebounce)
		if err != nil {
			fsys.log.Debug().Err(err).Uint32("mount_id", uint32(mt.id)).Msg("watcher unavailable")
		} else {
			fsys.watchers[mt.id] = w
		}
	}

	return mt.id, nil
}

// UnmountDir removes the mount with id if it allows unmounting, dropping every file it
// contributed to the index. It reports false, without error detail beyond
// ErrPolicyDenied/ErrNotFound, per the boolean facade contract.
func (fsys *Filesystem) UnmountDir(id MountID) (bool, error) {
	ok, err := fsys.mounts.remove(id)
	if !ok {
		return false, err
	}

	if w, exists := fsys.watchers[id]; exists {
		_ = w.Close()
		delete(fsys.watchers, id)
	}

	fsys.index.removeMount(id)
	fsys.stats.MountCount = len(fsys.mounts.byID)
	fsys.stats.IndexedFileCount = len(fsys.index.byID)

	return true, nil
}

// GetMountId returns the id of the mount rooted at path, or InvalidMountID if none matches.
func (fsys *Filesystem) GetMountId(path string) MountID {
	return fsys.mounts.idForPath(path)
}

// ForEachMount calls fn once per registered mount, in unspecified order.
func (fsys *Filesystem) ForEachMount(fn func(id MountID, rootDirPath string, allowUnmount bool)) {
	fsys.mounts.forEach(fn)
}

// IsPathInMount reports whether path, taken as relative to mount id's root, resolves
// under that root once joined and canonicalized.
func (fsys *Filesystem) IsPathInMount(path string, id MountID) bool {
	return fsys.mounts.isPathInMount(path, id)
}

// IsPathInAnyMount reports whether path, taken as relative to each mount's root in turn,
// resolves under any registered mount's root.
func (fsys *Filesystem) IsPathInAnyMount(path string) bool {
	return fsys.mounts.isPathInAnyMount(path)
}

// GetFile returns the record for id, if indexed.
func (fsys *Filesystem) GetFile(id FileID) (FileRecord, bool) {
	return fsys.index.get(id)
}

// ForEachFile calls fn once per indexed record, in unspecified order.
func (fsys *Filesystem) ForEachFile(fn func(rec FileRecord)) {
	fsys.index.forEach(fn)
}

// Stats returns a snapshot of current facade activity counters.
func (fsys *Filesystem) Stats() FilesystemStats {
	return fsys.stats
}

// WriteFile serializes payload through the Streamable capability, applies the
// compression policy, writes a single-file package to mountID's root at filename, and
// registers the resulting record under fileId, replacing any prior record with that id.
func (fsys *Filesystem) WriteFile(
	mountID MountID,
	filename string,
	fileID FileID,
	deps []FileID,
	payload Streamable,
	compress bool,
	sourceFilename string,
) (bool, error) {
	mt, ok := fsys.mounts.get(mountID)
	if !ok {
		return false, fmt.Errorf("%w: mount %d", ErrNotFound, mountID)
	}

	relPath := NormalizeRelPath(filename)
	if relPath == "" {
		return false, fmt.Errorf("%w: empty filename", ErrInvalidArgument)
	}

	staging := NewWriteBuffer()
	if err := payload.WriteStream(staging); err != nil {
		return false, fmt.Errorf("%w: serialize payload: %w", ErrInvalidArgument, err)
	}

	uncompressed := staging.Bytes()
	uncompressedSize := len(uncompressed)

	dataToWrite := uncompressed
	compressedSize := uncompressedSize

	if shouldCompress(compress, uncompressedSize) {
		compressed, err := compressLZ4(uncompressed)
		if err == nil {
			dataToWrite = compressed
			compressedSize = len(compressed)
		} else if err != errIncompressible {
			return false, fmt.Errorf("%w: compress payload: %w", ErrIoFailure, err)
		}
	}

	if uncompressedSize > int(^uint32(0)) || compressedSize > int(^uint32(0)) {
		return false, fmt.Errorf("%w: payload too large for uint32 size field", ErrInvalidArgument)
	}

	rec := FileRecord{
		FileId:           fileID,
		MountId:          mountID,
		MountRelPath:     relPath,
		SourceFilename:   sourceFilename,
		FileDependencies: deps,
		UncompressedSize: uint32(uncompressedSize),
		CompressedSize:   uint32(compressedSize),
	}

	diskPath := joinMountRelPath(mt.rootDirPath, relPath)
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return false, fmt.Errorf("%w: create directory for %q: %w", ErrIoFailure, diskPath, err)
	}

	f, err := os.OpenFile(diskPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, fmt.Errorf("%w: open %q: %w", ErrIoFailure, diskPath, err)
	}
	defer f.Close()

	if err := writePackage(f, []FileRecord{rec}, [][]byte{dataToWrite}); err != nil {
		return false, err
	}

	rec.Offset = uint32(headerSize) + uint32(recordWireSize(rec))

	fsys.index.put(rec)
	fsys.stats.IndexedFileCount = len(fsys.index.byID)

	return true, nil
}

// writePackage writes a header followed by len(records) FileRecord entries and their
// concatenated data blobs to w, fixing up each record's Offset field once the data
// region's actual start is known. records and dataBlobs must be the same length and in
// the same order they should appear on disk.
func writePackage(w io.WriteSeeker, records []FileRecord, dataBlobs [][]byte) error {
	if len(records) != len(dataBlobs) {
		return fmt.Errorf("%w: record/data count mismatch", ErrInvalidArgument)
	}

	bw := bufio.NewWriter(w)

	if err := writeFormatHeader(bw, FormatHeader{FormatVersion: FormatVersion, FileCount: uint32(len(records))}); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrIoFailure, err)
	}

	offsetFieldPositions := make([]int64, len(records))
	pos := int64(headerSize)

	for i := range records {
		fieldPos, err := writeRecordPlaceholder(bw, pos, records[i])
		if err != nil {
			return err
		}

		offsetFieldPositions[i] = fieldPos
		pos += recordWireSize(records[i])
	}

	dataStart := pos

	currentOffset := dataStart
	finalOffsets := make([]uint32, len(records))
	for i, blob := range dataBlobs {
		if currentOffset > int64(^uint32(0)) {
			return fmt.Errorf("%w: data offset %d exceeds uint32 range", ErrInvalidArgument, currentOffset)
		}

		finalOffsets[i] = uint32(currentOffset)

		if _, err := bw.Write(blob); err != nil {
			return fmt.Errorf("%w: write data blob %d: %w", ErrIoFailure, i, err)
		}

		currentOffset += int64(len(blob))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush package: %w", ErrIoFailure, err)
	}

	for i, fieldPos := range offsetFieldPositions {
		if err := patchOffset(w, fieldPos, finalOffsets[i]); err != nil {
			return err
		}
	}

	return nil
}

// patchOffset seeks to fieldPos and overwrites the 4-byte little-endian Offset field,
// then restores the stream position to end-of-file so subsequent writes append correctly.
func patchOffset(w io.WriteSeeker, fieldPos int64, offset uint32) error {
	end, err := w.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: seek end before patch: %w", ErrIoFailure, err)
	}

	if _, err := w.Seek(fieldPos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to offset field: %w", ErrIoFailure, err)
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], offset)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("%w: patch offset field: %w", ErrIoFailure, err)
	}

	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("%w: restore stream position: %w", ErrIoFailure, err)
	}

	return nil
}

// ReadFile resolves fileID, opens its backing container, reads its data region, and
// hydrates out from it, decompressing first if CompressedSize != UncompressedSize.
func (fsys *Filesystem) ReadFile(fileID FileID, out Streamable) (bool, error) {
	rec, ok := fsys.index.get(fileID)
	if !ok {
		return false, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}

	mt, ok := fsys.mounts.get(rec.MountId)
	if !ok {
		return false, fmt.Errorf("%w: mount %d for file %d", ErrNotFound, rec.MountId, fileID)
	}

	diskPath := joinMountRelPath(mt.rootDirPath, rec.MountRelPath)

	f, err := os.Open(diskPath)
	if err != nil {
		return false, fmt.Errorf("%w: open %q: %w", ErrIoFailure, diskPath, err)
	}
	defer f.Close()

	raw := make([]byte, rec.CompressedSize)
	if rec.CompressedSize > 0 {
		if _, err := f.Seek(int64(rec.Offset), io.SeekStart); err != nil {
			return false, fmt.Errorf("%w: seek to data region: %w", ErrIoFailure, err)
		}

		if _, err := io.ReadFull(f, raw); err != nil {
			return false, fmt.Errorf("%w: read data region: %w", ErrIoFailure, err)
		}
	}

	data := raw
	if rec.CompressedSize != rec.UncompressedSize {
		data, err = decompressLZ4(raw, int(rec.UncompressedSize))
		if err != nil {
			return false, err
		}
	}

	if err := out.ReadStream(NewReadBuffer(data)); err != nil {
		return false, fmt.Errorf("%w: deserialize payload: %w", ErrFormatError, err)
	}

	return true, nil
}

// CreateArchive aggregates fileIDs (in the given order) into one multi-file container at
// mountID's root under filename. Compressed bytes are copied verbatim from each source
// file with no re-decompression/re-compression pass. Source single-file packages are left
// on disk untouched; each record's MountRelPath is rewritten to point at the archive, and
// the live index reflects the new location immediately.
func (fsys *Filesystem) CreateArchive(mountID MountID, filename string, fileIDs []FileID) (bool, error) {
	mt, ok := fsys.mounts.get(mountID)
	if !ok {
		return false, fmt.Errorf("%w: mount %d", ErrNotFound, mountID)
	}

	relPath := NormalizeRelPath(filename)
	if relPath == "" {
		return false, fmt.Errorf("%w: empty filename", ErrInvalidArgument)
	}

	if len(fileIDs) == 0 {
		return false, fmt.Errorf("%w: no files given for archive", ErrInvalidArgument)
	}

	records := make([]FileRecord, len(fileIDs))
	blobs := make([][]byte, len(fileIDs))

	for i, id := range fileIDs {
		rec, ok := fsys.index.get(id)
		if !ok {
			return false, fmt.Errorf("%w: file %d", ErrNotFound, id)
		}

		srcMount, ok := fsys.mounts.get(rec.MountId)
		if !ok {
			return false, fmt.Errorf("%w: mount %d for file %d", ErrNotFound, rec.MountId, id)
		}

		blob, err := readRawDataRegion(joinMountRelPath(srcMount.rootDirPath, rec.MountRelPath), rec)
		if err != nil {
			return false, err
		}

		records[i] = rec
		blobs[i] = blob
	}

	diskPath := joinMountRelPath(mt.rootDirPath, relPath)
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return false, fmt.Errorf("%w: create directory for %q: %w", ErrIoFailure, diskPath, err)
	}

	f, err := os.OpenFile(diskPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, fmt.Errorf("%w: open %q: %w", ErrIoFailure, diskPath, err)
	}
	defer f.Close()

	archiveRecords := make([]FileRecord, len(records))
	for i, rec := range records {
		archiveRecords[i] = rec
		archiveRecords[i].MountId = mountID
		archiveRecords[i].MountRelPath = relPath
	}

	if err := writePackage(f, archiveRecords, blobs); err != nil {
		return false, err
	}

	pos := int64(headerSize)
	for i := range archiveRecords {
		pos += recordWireSize(archiveRecords[i])
	}
	for i := range archiveRecords {
		archiveRecords[i].Offset = uint32(pos)
		pos += int64(len(blobs[i]))
	}

	for _, rec := range archiveRecords {
		fsys.index.put(rec)
	}

	return true, nil
}

// readRawDataRegion reads exactly rec.CompressedSize bytes at rec.Offset from the file at
// diskPath, without decompressing: CreateArchive relays compressed bytes verbatim.
func readRawDataRegion(diskPath string, rec FileRecord) ([]byte, error) {
	f, err := os.Open(diskPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrIoFailure, diskPath, err)
	}
	defer f.Close()

	buf := make([]byte, rec.CompressedSize)
	if rec.CompressedSize > 0 {
		if _, err := f.Seek(int64(rec.Offset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek to data region: %w", ErrIoFailure, err)
		}

		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("%w: read data region: %w", ErrIoFailure, err)
		}
	}

	return buf, nil
}

// SetImporter binds importer to every extension in exts, each matched case-sensitively,
// dot-prefixed (e.g. ".png"). Later calls overwrite earlier bindings for the same extension.
func (fsys *Filesystem) SetImporter(exts []string, importer FileImporter) {
	fsys.importers.setImporter(exts, importer)
}

// GetImporter returns the importer bound to ext, if any.
func (fsys *Filesystem) GetImporter(ext string) (FileImporter, bool) {
	return fsys.importers.getImporter(ext)
}

// SetImporterOverrides installs glob-pattern routing rules consulted ahead of the
// extension table; see FileImporter and importOverrideMatcher for the matching semantics.
func (fsys *Filesystem) SetImporterOverrides(patterns []string, importers []FileImporter) error {
	if len(patterns) != len(importers) {
		return fmt.Errorf("%w: pattern/importer count mismatch", ErrInvalidArgument)
	}

	rules := make([]importOverrideRule, len(patterns))
	for i, pattern := range patterns {
		rules[i] = importOverrideRule{pattern: pattern, action: pathrules.ActionInclude, importer: importers[i]}
	}

	return fsys.importers.setImporterOverride(rules)
}

// Import locates an importer for sourcePath by extension (or glob override) and delegates
// to it. It fails if sourcePath is not a regular file or no importer is bound.
func (fsys *Filesystem) Import(sourcePath string, outputMount MountID, outputDir string) (bool, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return false, fmt.Errorf("%w: stat %q: %w", ErrNotFound, sourcePath, err)
	}

	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%w: %q is not a regular file", ErrInvalidArgument, sourcePath)
	}

	importer, ok := fsys.importers.getImporterForPath(sourcePath)
	if !ok {
		return false, fmt.Errorf("%w: no importer for %q", ErrNotFound, sourcePath)
	}

	return importer.Import(fsys, sourcePath, outputMount, outputDir)
}

// Reimport finds fileID's record, requires its SourceFilename to exist as a regular
// file, locates an importer by that filename's extension, and delegates to it.
func (fsys *Filesystem) Reimport(fileID FileID) (bool, error) {
	rec, ok := fsys.index.get(fileID)
	if !ok {
		return false, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}

	if rec.SourceFilename == "" {
		return false, fmt.Errorf("%w: file %d has no source filename", ErrInvalidArgument, fileID)
	}

	info, err := os.Stat(rec.SourceFilename)
	if err != nil {
		return false, fmt.Errorf("%w: stat %q: %w", ErrNotFound, rec.SourceFilename, err)
	}

	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%w: %q is not a regular file", ErrInvalidArgument, rec.SourceFilename)
	}

	importer, ok := fsys.importers.getImporterForPath(rec.SourceFilename)
	if !ok {
		return false, fmt.Errorf("%w: no importer for %q", ErrNotFound, rec.SourceFilename)
	}

	return importer.Reimport(fsys, rec)
}

// DeriveImportOutputPath sanitizes sourcePath's base name and outputDir into a
// filesystem-safe MountRelPath under outputMount, resolving a collision against any path
// already indexed for that mount with a deterministic numeric suffix. FileImporter
// implementations call this instead of joining outputDir and the source filename
// directly, since source filenames come from arbitrary content pipelines and are not
// guaranteed to be safe destination paths on every host.
func (fsys *Filesystem) DeriveImportOutputPath(outputMount MountID, outputDir, sourcePath string) (string, error) {
	sanitizedBase, err := sanitizeOutputRelPath(filepath.Base(sourcePath))
	if err != nil {
		return "", err
	}

	candidate := sanitizedBase
	if outputDir != "" {
		sanitizedDir, err := sanitizeOutputRelPath(outputDir)
		if err != nil {
			return "", err
		}

		candidate = sanitizedDir + "/" + sanitizedBase
	}

	used := make(map[string]struct{})
	fsys.index.forEach(func(rec FileRecord) {
		if rec.MountId == outputMount {
			used[strings.ToLower(rec.MountRelPath)] = struct{}{}
		}
	})

	return uniqueOutputPath(candidate, used), nil
}

// SetFileReimportCallback registers the callback tick() invokes once per hot-reloaded
// FileID. A nil callback disables delivery without stopping the underlying watchers.
func (fsys *Filesystem) SetFileReimportCallback(fn func(FileID)) {
	fsys.onReimport = fn
}

// tick drains pending watcher events and applies them to the index, invoking the
// reimport callback in delivery order for every "modified" event that still resolves to
// a valid record. This is the only place watcher-observed changes reach the index.
func (fsys *Filesystem) tick() {
	events := fsys.queue.drainAll()
	if len(events) == 0 {
		return
	}

	// drainAll already returns events oldest-first; applying them in that order keeps
	// hot-reload callback delivery in the same order the watcher observed the changes.
	for _, ev := range events {
		mt, ok := fsys.mounts.get(ev.mountID)
		if !ok {
			continue
		}

		fileID, reimportOK := fsys.index.applyWatchEvent(ev, mt.rootDirPath)
		if reimportOK {
			fsys.stats.HotReloadDeliveries++
			if fsys.onReimport != nil {
				fsys.onReimport(fileID)
			}
		}
	}

	fsys.stats.IndexedFileCount = len(fsys.index.byID)
}

// Tick is the exported form of tick, the facade's single hot-reload pump point. Callers
// should invoke it periodically (e.g. once per game frame or server loop iteration) from
// the same goroutine that calls every other Filesystem method.
func (fsys *Filesystem) Tick() {
	fsys.tick()
}

// Close stops every per-mount watcher goroutine. It does not unmount or clear the index;
// callers that also want a clean index should call UnmountDir for each mount first.
func (fsys *Filesystem) Close() error {
	var firstErr error

	for id, w := range fsys.watchers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(fsys.watchers, id)
	}

	return firstErr
}
