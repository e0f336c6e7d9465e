// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileIndexPutReplacesAndReindexesPath(t *testing.T) {
	t.Parallel()

	idx := newFileIndex()
	idx.put(FileRecord{FileId: 1, MountId: 10, MountRelPath: "a.rbin"})

	if _, found := idx.removeByPath(10, "a.rbin"); !found {
		t.Fatal("removeByPath did not find freshly-indexed record")
	}
	if _, found := idx.get(1); found {
		t.Fatal("get(1) still found after removeByPath")
	}

	idx.put(FileRecord{FileId: 1, MountId: 10, MountRelPath: "b.rbin"})
	idx.put(FileRecord{FileId: 1, MountId: 10, MountRelPath: "c.rbin"})

	if _, found := idx.removeByPath(10, "b.rbin"); found {
		t.Fatal("stale path b.rbin still resolves after overwrite moved FileId 1 to c.rbin")
	}
	id, found := idx.removeByPath(10, "c.rbin")
	if !found || id != 1 {
		t.Fatalf("removeByPath(c.rbin) = %d, %v, want 1, true", id, found)
	}
}

func TestFileIndexRemoveMountDropsOnlyThatMountsRecords(t *testing.T) {
	t.Parallel()

	idx := newFileIndex()
	idx.put(FileRecord{FileId: 1, MountId: 1, MountRelPath: "a.rbin"})
	idx.put(FileRecord{FileId: 2, MountId: 2, MountRelPath: "b.rbin"})

	idx.removeMount(1)

	if _, found := idx.get(1); found {
		t.Fatal("get(1) still found after removeMount(1)")
	}
	if _, found := idx.get(2); !found {
		t.Fatal("get(2) not found after removeMount(1) removed an unrelated mount")
	}
}

func TestGatherFilesInMountScansWrittenPackages(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fsys := NewFilesystem(FilesystemOptions{DisableWatcher: true})
	mountID, err := fsys.MountDir(root, true)
	if err != nil {
		t.Fatalf("MountDir: %v", err)
	}

	payload := &textPayload{Text: "scan me"}
	if ok, err := fsys.WriteFile(mountID, "nested/dir/file.rbin", 42, nil, payload, false, ""); err != nil || !ok {
		t.Fatalf("WriteFile = %v, %v", ok, err)
	}

	// A second Filesystem mounting the same root from scratch must rediscover the file
	// purely by scanning, exercising gatherFilesInMount/validateAndReadFile directly.
	fresh := NewFilesystem(FilesystemOptions{DisableWatcher: true})
	freshMount, err := fresh.MountDir(root, true)
	if err != nil {
		t.Fatalf("MountDir (fresh): %v", err)
	}

	rec, found := fresh.GetFile(42)
	if !found {
		t.Fatal("fresh mount did not discover the previously written package")
	}
	if rec.MountId != freshMount || rec.MountRelPath != "nested/dir/file.rbin" {
		t.Fatalf("rediscovered record = %+v", rec)
	}

	var out textPayload
	if ok, err := fresh.ReadFile(42, &out); err != nil || !ok {
		t.Fatalf("ReadFile on rediscovered record = %v, %v", ok, err)
	}
	if out.Text != "scan me" {
		t.Fatalf("rediscovered content = %q, want %q", out.Text, "scan me")
	}
}

func TestValidateAndReadFileSkipsNonPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(plain, []byte("just some text, not a package at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, ok, err := validateAndReadFile(plain)
	if err != nil {
		t.Fatalf("validateAndReadFile: unexpected error %v", err)
	}
	if ok {
		t.Fatal("validateAndReadFile on a non-package file: ok = true, want false")
	}
}

func TestApplyWatchEventModifiedDeliversReimport(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fsys := NewFilesystem(FilesystemOptions{DisableWatcher: true})
	mountID, err := fsys.MountDir(root, true)
	if err != nil {
		t.Fatalf("MountDir: %v", err)
	}

	payload := &textPayload{Text: "v1"}
	if ok, err := fsys.WriteFile(mountID, "f.rbin", 7, nil, payload, false, ""); err != nil || !ok {
		t.Fatalf("WriteFile = %v, %v", ok, err)
	}

	diskPath := filepath.Join(root, "f.rbin")
	ev := watchEvent{kind: watchModified, mountID: mountID, path: diskPath}

	id, ok := fsys.index.applyWatchEvent(ev, root)
	if !ok || id != 7 {
		t.Fatalf("applyWatchEvent(modified) = %d, %v, want 7, true", id, ok)
	}
}

func TestApplyWatchEventRemovedClearsIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fsys := NewFilesystem(FilesystemOptions{DisableWatcher: true})
	mountID, err := fsys.MountDir(root, true)
	if err != nil {
		t.Fatalf("MountDir: %v", err)
	}

	payload := &textPayload{Text: "going away"}
	if ok, err := fsys.WriteFile(mountID, "gone.rbin", 9, nil, payload, false, ""); err != nil || !ok {
		t.Fatalf("WriteFile = %v, %v", ok, err)
	}

	diskPath := filepath.Join(root, "gone.rbin")
	ev := watchEvent{kind: watchRemoved, mountID: mountID, path: diskPath}

	if _, ok := fsys.index.applyWatchEvent(ev, root); ok {
		t.Fatal("applyWatchEvent(removed) reported a reimport, want none")
	}
	if _, found := fsys.GetFile(9); found {
		t.Fatal("GetFile(9) still found after applyWatchEvent(removed)")
	}
}
