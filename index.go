// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fileIndex maintains the FileID -> FileRecord map and a reverse (mountID, path) -> FileID
// lookup used to resolve watcher events, which arrive as paths, not ids. Like
// mountRegistry, it is not internally synchronized: all mutation happens on the
// cooperative facade thread, including watcher-driven mutation applied during tick().
type fileIndex struct {
	byID   map[FileID]FileRecord
	byPath map[MountID]map[string]FileID
}

// newFileIndex returns an empty index.
func newFileIndex() *fileIndex {
	return &fileIndex{
		byID:   make(map[FileID]FileRecord),
		byPath: make(map[MountID]map[string]FileID),
	}
}

// get returns the record for id, if indexed.
func (idx *fileIndex) get(id FileID) (FileRecord, bool) {
	rec, ok := idx.byID[id]

	return rec, ok
}

// forEach calls fn once per indexed record in unspecified order.
func (idx *fileIndex) forEach(fn func(rec FileRecord)) {
	for _, rec := range idx.byID {
		fn(rec)
	}
}

// put registers or replaces rec by FileId, keeping the reverse path index in sync.
func (idx *fileIndex) put(rec FileRecord) {
	if old, ok := idx.byID[rec.FileId]; ok {
		idx.unindexPath(old)
	}

	idx.byID[rec.FileId] = rec
	idx.indexPath(rec)
}

// removeByID drops rec with the given id, if present.
func (idx *fileIndex) removeByID(id FileID) {
	rec, ok := idx.byID[id]
	if !ok {
		return
	}

	idx.unindexPath(rec)
	delete(idx.byID, id)
}

// removeByPath drops whichever record is registered at (mountID, path), if any, and
// returns its id.
func (idx *fileIndex) removeByPath(mountID MountID, path string) (FileID, bool) {
	m, ok := idx.byPath[mountID]
	if !ok {
		return 0, false
	}

	id, ok := m[path]
	if !ok {
		return 0, false
	}

	delete(idx.byID, id)
	delete(m, path)

	return id, true
}

// removeMount drops every record belonging to mountID.
func (idx *fileIndex) removeMount(mountID MountID) {
	for id, rec := range idx.byID {
		if rec.MountId == mountID {
			delete(idx.byID, id)
		}
	}

	delete(idx.byPath, mountID)
}

func (idx *fileIndex) indexPath(rec FileRecord) {
	m, ok := idx.byPath[rec.MountId]
	if !ok {
		m = make(map[string]FileID)
		idx.byPath[rec.MountId] = m
	}

	m[rec.MountRelPath] = rec.FileId
}

func (idx *fileIndex) unindexPath(rec FileRecord) {
	if m, ok := idx.byPath[rec.MountId]; ok {
		delete(m, rec.MountRelPath)
	}
}

// gatherFilesInMount recursively scans rootDirPath for valid containers and returns every
// FileRecord they contain, with MountId and MountRelPath filled in. Files smaller than
// headerSize, or whose magic does not match, are skipped silently: they are simply not
// packages of this format.
func gatherFilesInMount(mountID MountID, rootDirPath string) ([]FileRecord, error) {
	var records []FileRecord

	err := filepath.WalkDir(rootDirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		recs, ok, err := validateAndReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: scan %q: %w", ErrIoFailure, path, err)
		}
		if !ok {
			return nil
		}

		relPath, err := filepath.Rel(rootDirPath, path)
		if err != nil {
			return fmt.Errorf("%w: relativize %q: %w", ErrIoFailure, path, err)
		}
		relPath = filepath.ToSlash(relPath)

		for i := range recs {
			recs[i].MountId = mountID
			recs[i].MountRelPath = relPath
		}

		records = append(records, recs...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// validateAndReadFile opens path, validates its FormatHeader, and reads FileCount
// records if the header is valid. ok=false means the file is not a container of this
// format, or its record table is truncated, and was skipped, not an error.
func validateAndReadFile(path string) (recs []FileRecord, ok bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}

	if info.Size() < headerSize {
		return nil, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	header, ok, err := readFormatHeader(f)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	recs = make([]FileRecord, 0, header.FileCount)
	for i := uint32(0); i < header.FileCount; i++ {
		rec, err := readRecord(f)
		if err != nil {
			return nil, false, nil
		}

		recs = append(recs, rec)
	}

	return recs, true, nil
}

// applyWatchEvent re-validates or removes index entries in response to one raw watcher
// observation, and reports the FileID to hot-reload for "modified" events that still
// resolve to a valid record. It is only ever called from tick(), on the facade's own
// goroutine, never from the watcher goroutine.
func (idx *fileIndex) applyWatchEvent(ev watchEvent, rootDirPath string) (reimport FileID, reimportOK bool) {
	relPath, err := filepath.Rel(rootDirPath, ev.path)
	if err != nil {
		return 0, false
	}
	relPath = filepath.ToSlash(relPath)

	switch ev.kind {
	case watchRemoved, watchRenamedOld:
		idx.removeByPath(ev.mountID, relPath)

		return 0, false

	case watchAdded, watchRenamedNew:
		recs, ok, err := validateAndReadFile(ev.path)
		if err != nil || !ok {
			return 0, false
		}

		for i := range recs {
			recs[i].MountId = ev.mountID
			recs[i].MountRelPath = relPath
			idx.put(recs[i])
		}

		return 0, false

	case watchModified:
		recs, ok, err := validateAndReadFile(ev.path)
		if err != nil || !ok {
			return 0, false
		}

		var last FileID
		for i := range recs {
			recs[i].MountId = ev.mountID
			recs[i].MountRelPath = relPath
			idx.put(recs[i])
			last = recs[i].FileId
		}

		if len(recs) == 0 {
			return 0, false
		}

		return last, true
	}

	return 0, false
}

// walkDirs calls fn once for root and every directory beneath it.
func walkDirs(root string, fn func(dir string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		return fn(path)
	})
}

// statPath is a thin os.Stat wrapper used by the watcher to distinguish directory
// creation (which needs a new watch registered) from file creation.
func statPath(path string) (os.FileInfo, error) {
	return os.Stat(path)
}
