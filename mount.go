// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"fmt"
	"os"
)

// mount is one registered root directory. IDs are issued by mountRegistry and are never
// reused within a process lifetime.
type mount struct {
	id           MountID
	rootDirPath  string
	allowUnmount bool
}

// mountRegistry manages mount identity, lifecycle, and path-containment queries. It is
// not internally synchronized: the concurrency model (see Filesystem) requires all
// mutation to happen on the single cooperative facade thread.
type mountRegistry struct {
	byID   map[MountID]*mount
	nextID MountID
}

// newMountRegistry returns an empty registry. MountID issuance starts at 1, since 0 is
// InvalidMountID.
func newMountRegistry() *mountRegistry {
	return &mountRegistry{
		byID:   make(map[MountID]*mount),
		nextID: 1,
	}
}

// add validates rootDirPath and registers a new mount, returning its freshly issued id.
func (m *mountRegistry) add(rootDirPath string, allowUnmount bool) (*mount, error) {
	info, err := os.Stat(rootDirPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat mount root %q: %w", ErrInvalidArgument, rootDirPath, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: mount root %q is not a directory", ErrInvalidArgument, rootDirPath)
	}

	id := m.nextID
	m.nextID++

	mt := &mount{id: id, rootDirPath: rootDirPath, allowUnmount: allowUnmount}
	m.byID[id] = mt

	return mt, nil
}

// remove drops the mount with id if it allows unmounting. It reports false with a wrapped
// ErrNotFound when the mount is unknown, and false with a wrapped ErrPolicyDenied when the
// mount disallows unmounting.
func (m *mountRegistry) remove(id MountID) (bool, error) {
	mt, ok := m.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: mount %d", ErrNotFound, id)
	}

	if !mt.allowUnmount {
		return false, fmt.Errorf("%w: mount %d does not allow unmount", ErrPolicyDenied, id)
	}

	delete(m.byID, id)

	return true, nil
}

// get returns the mount with id, if any.
func (m *mountRegistry) get(id MountID) (*mount, bool) {
	mt, ok := m.byID[id]

	return mt, ok
}

// idForPath returns the id of the mount whose root resolves to the same directory as
// path, or InvalidMountID if none matches.
func (m *mountRegistry) idForPath(path string) MountID {
	for id, mt := range m.byID {
		if canonicalPathsEqual(mt.rootDirPath, path) {
			return id
		}
	}

	return InvalidMountID
}

// forEach calls fn once per mount in unspecified order.
func (m *mountRegistry) forEach(fn func(id MountID, rootDirPath string, allowUnmount bool)) {
	for id, mt := range m.byID {
		fn(id, mt.rootDirPath, mt.allowUnmount)
	}
}

// isPathInMount reports whether path, taken as relative to mount id's root, resolves
// (root joined with path, then canonicalized) under that root.
func (m *mountRegistry) isPathInMount(path string, id MountID) bool {
	mt, ok := m.byID[id]
	if !ok {
		return false
	}

	return isPathInRoot(mt.rootDirPath, path)
}

// isPathInAnyMount reports whether path, taken as relative to each mount's root in turn,
// resolves under any registered mount's root.
func (m *mountRegistry) isPathInAnyMount(path string) bool {
	for _, mt := range m.byID {
		if isPathInRoot(mt.rootDirPath, path) {
			return true
		}
	}

	return false
}
