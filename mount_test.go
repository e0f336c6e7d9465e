// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMountRegistryIDsAreMonotonicAndNeverReused(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()

	reg := newMountRegistry()

	mtA, err := reg.add(dirA, true)
	if err != nil {
		t.Fatalf("add(dirA): %v", err)
	}
	mtB, err := reg.add(dirB, true)
	if err != nil {
		t.Fatalf("add(dirB): %v", err)
	}

	if mtA.id == InvalidMountID || mtB.id == InvalidMountID {
		t.Fatalf("issued ids must never be InvalidMountID: got %d, %d", mtA.id, mtB.id)
	}
	if mtB.id <= mtA.id {
		t.Fatalf("second mount id %d must be greater than first %d", mtB.id, mtA.id)
	}

	if _, err := reg.remove(mtA.id); err != nil {
		t.Fatalf("remove(mtA): %v", err)
	}

	mtC, err := reg.add(dirA, true)
	if err != nil {
		t.Fatalf("add(dirA) again: %v", err)
	}
	if mtC.id == mtA.id {
		t.Fatal("mount id was reused after removal, want a fresh id")
	}
}

func TestMountRegistryUnmountPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := newMountRegistry()

	locked, err := reg.add(dir, false)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	ok, err := reg.remove(locked.id)
	if ok {
		t.Fatal("remove on allowUnmount=false mount: ok = true, want false")
	}
	if !errors.Is(err, ErrPolicyDenied) {
		t.Fatalf("remove error = %v, want wrapped ErrPolicyDenied", err)
	}

	if _, stillThere := reg.get(locked.id); !stillThere {
		t.Fatal("mount was removed from registry despite policy denial")
	}
}

func TestMountRegistryRemoveUnknownMount(t *testing.T) {
	t.Parallel()

	reg := newMountRegistry()
	ok, err := reg.remove(MountID(9999))
	if ok || !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove(unknown) = ok=%v err=%v, want ok=false err=ErrNotFound", ok, err)
	}
}

func TestMountRegistryPathContainment(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sub := filepath.Join(root, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "file.dat"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg := newMountRegistry()
	mt, err := reg.add(root, true)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// path is always relative to the mount root, joined before canonicalization.
	insideRelPath := "nested/file.dat"
	if !reg.isPathInMount(insideRelPath, mt.id) {
		t.Fatalf("isPathInMount(%q) = false, want true", insideRelPath)
	}
	if !reg.isPathInAnyMount(insideRelPath) {
		t.Fatal("isPathInAnyMount(nested path) = false, want true")
	}

	escapingRelPath := "../escape/file.dat"
	if reg.isPathInMount(escapingRelPath, mt.id) {
		t.Fatalf("isPathInMount(%q) = true, want false", escapingRelPath)
	}
	if reg.isPathInAnyMount(escapingRelPath) {
		t.Fatal("isPathInAnyMount(escaping path) = true, want false")
	}
}

func TestMountRegistryAddRejectsNonDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	file := filepath.Join(root, "not_a_dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg := newMountRegistry()
	if _, err := reg.add(file, true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("add(file) error = %v, want wrapped ErrInvalidArgument", err)
	}
}

func TestMountRegistryIdForPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	reg := newMountRegistry()
	mt, err := reg.add(root, true)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := reg.idForPath(root); got != mt.id {
		t.Fatalf("idForPath(root) = %d, want %d", got, mt.id)
	}
	if got := reg.idForPath(t.TempDir()); got != InvalidMountID {
		t.Fatalf("idForPath(unrelated) = %d, want InvalidMountID", got)
	}
}
