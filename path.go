// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizeRelPath converts a mount-relative path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizeRelPath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, `/`)
	p = strings.TrimPrefix(p, "./")

	return p
}

// isPathInRoot reports whether root joined with candidate resolves (after canonicalization)
// under root, mirroring the original implementation's canonical(root/path) containment check:
// candidate is always taken as relative to root, joined first and canonicalized second, not
// canonicalized on its own. Any resolution failure (missing file, permission, symlink loop) is
// treated as "not contained" rather than propagated as an error, since callers only need a
// boolean answer.
func isPathInRoot(root, candidate string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}

	absJoined, err := filepath.Abs(filepath.Join(root, candidate))
	if err != nil {
		return false
	}

	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return false
	}

	resolvedJoined, err := filepath.EvalSymlinks(absJoined)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedJoined)
	if err != nil {
		return false
	}

	if rel == "." {
		return true
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalPathsEqual reports whether a and b resolve to the same canonical directory.
// A failure to make either path absolute is treated as "not equal"; a path whose
// symlinks cannot be resolved (e.g. it does not exist) is compared in its absolute form.
func canonicalPathsEqual(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}

	resolvedA, err := filepath.EvalSymlinks(absA)
	if err != nil {
		resolvedA = absA
	}

	resolvedB, err := filepath.EvalSymlinks(absB)
	if err != nil {
		resolvedB = absB
	}

	return resolvedA == resolvedB
}

// joinMountRelPath joins a mount root with a normalized mount-relative path using host separators.
func joinMountRelPath(root, relPath string) string {
	relPath = NormalizeRelPath(relPath)

	return filepath.Join(root, filepath.FromSlash(relPath))
}
