// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"time"

	"github.com/rs/zerolog"
)

// Wire-format constants. These govern on-disk layout and must never change without a
// FormatVersion bump; they are distinct from FilesystemOptions, which governs only
// ambient runtime behavior.
const (
	// CompressMinBytes is the uncompressed-size threshold below which a requested
	// compression is silently downgraded to verbatim storage.
	CompressMinBytes = 512 * 1024
	// InvalidMountID is never issued by MountDir; it marks an absent or unknown mount.
	InvalidMountID MountID = 0
	// InvalidFileID marks an absent or unknown file.
	InvalidFileID FileID = 0
	// FormatVersion is the only container version this package can read and write.
	FormatVersion = 1

	// magic is the fixed 4-byte container prefix, "gfsf" in ASCII.
	magic = "gfsf"

	// defaultWatcherDebounce coalesces bursts of filesystem events from editors that
	// write a file through a temp-file-then-rename sequence, which otherwise appears
	// as remove+create instead of one modification.
	defaultWatcherDebounce = 50 * time.Millisecond
	// defaultHotReloadQueueCapacity bounds the hot-reload FIFO so a stalled consumer
	// cannot grow it without bound; once full, the watcher goroutine replaces the oldest
	// pending event for the affected path with the newest one, or, if none is pending,
	// drops the oldest event in the queue.
	defaultHotReloadQueueCapacity = 4096
)

// FilesystemOptions configures ambient runtime behavior of a Filesystem. None of these
// knobs affect the wire format; they follow the teacher's applyDefaults() convention of
// filling zero-valued fields rather than requiring every caller to specify everything.
type FilesystemOptions struct {
	// Logger receives structured trace events for mount, scan, watch, and import
	// activity. A nil Logger is replaced by zerolog.Nop(), matching the "no logging
	// emitted unless a caller opts in" contract.
	Logger *zerolog.Logger
	// WatcherDebounce coalesces rapid-fire filesystem events for the same path before
	// they are applied to the index. Zero uses defaultWatcherDebounce.
	WatcherDebounce time.Duration
	// HotReloadQueueCapacity bounds the number of pending watch events buffered between
	// watcher goroutine and tick(). Zero uses defaultHotReloadQueueCapacity.
	HotReloadQueueCapacity int
	// DisableWatcher skips starting a filesystem watcher for mounts added afterwards;
	// scans still happen on MountDir, but no hot-reload events are ever delivered.
	// Useful for short-lived CLI tools that never call tick().
	DisableWatcher bool
}

// applyDefaults fills zero-valued filesystem options with defaults.
func (o *FilesystemOptions) applyDefaults() {
	if o.WatcherDebounce <= 0 {
		o.WatcherDebounce = defaultWatcherDebounce
	}

	if o.HotReloadQueueCapacity <= 0 {
		o.HotReloadQueueCapacity = defaultHotReloadQueueCapacity
	}
}
