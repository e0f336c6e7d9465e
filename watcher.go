// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watchEventKind classifies one filesystem-change observation from a mount's watcher.
type watchEventKind int

// Kinds of filesystem-change events a mount watcher can observe.
const (
	watchAdded watchEventKind = iota
	watchModified
	watchRemoved
	watchRenamedOld
	watchRenamedNew
)

// watchEvent is a raw, unresolved observation posted by the watcher goroutine. It
// carries a path, not a FileID: resolving to a FileID requires a header read, which only
// happens synchronously inside tick(), per the recommended single-threaded design.
type watchEvent struct {
	kind    watchEventKind
	mountID MountID
	path    string
}

// watchQueue is a bounded, mutex-guarded FIFO of watchEvent. The watcher goroutine is
// the sole producer; tick() is the sole consumer. When full, the oldest pending event for
// the same (mountID, path) pair is replaced by the newest one; if no event for that pair
// is pending, the oldest event in the queue is dropped to make room. The queue therefore
// never grows past capacity under a stalled consumer, and events can be lost once it is full.
type watchQueue struct {
	mu       sync.Mutex
	items    []watchEvent
	capacity int
}

// newWatchQueue returns an empty queue bounded to capacity events.
func newWatchQueue(capacity int) *watchQueue {
	if capacity <= 0 {
		capacity = defaultHotReloadQueueCapacity
	}

	return &watchQueue{capacity: capacity}
}

// push enqueues ev, coalescing against an existing pending event for the same path if the
// queue is at capacity.
func (q *watchQueue) push(ev watchEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		for i := range q.items {
			if q.items[i].mountID == ev.mountID && q.items[i].path == ev.path {
				q.items[i] = ev

				return
			}
		}

		// No matching pending event to coalesce into: drop the oldest entry to make room.
		q.items = q.items[1:]
	}

	q.items = append(q.items, ev)
}

// drainAll atomically removes and returns every pending event, oldest first.
func (q *watchQueue) drainAll() []watchEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	drained := q.items
	q.items = nil

	return drained
}

// mountWatcher owns one fsnotify.Watcher scoped to a single mount root and posts raw
// events onto a shared watchQueue. It is the only background actor in the system; all
// other state mutation happens on the facade's calling goroutine.
type mountWatcher struct {
	watcher  *fsnotify.Watcher
	mountID  MountID
	queue    *watchQueue
	log      zerolog.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	debounce time.Duration

	pendingMu sync.Mutex
	pending   map[string]*pendingEvent
}

// pendingEvent holds the most recent observation for a path while its debounce timer is
// still running. A new observation for the same path replaces ev and resets timer rather
// than enqueuing a second watchEvent.
type pendingEvent struct {
	timer *time.Timer
	ev    watchEvent
}

// startMountWatcher recursively watches rootDirPath and returns a handle that posts
// events onto queue until Close is called. An error here means the watcher could not be
// started (e.g. inotify instance limit); mounting still proceeds without hot-reload.
// debounce coalesces rapid-fire events for the same path; zero disables coalescing and
// posts every observation immediately.
func startMountWatcher(mountID MountID, rootDirPath string, queue *watchQueue, log zerolog.Logger, debounce time.Duration) (*mountWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := addWatchRecursive(w, rootDirPath); err != nil {
		_ = w.Close()

		return nil, err
	}

	mw := &mountWatcher{
		watcher:  w,
		mountID:  mountID,
		queue:    queue,
		log:      log,
		done:     make(chan struct{}),
		debounce: debounce,
		pending:  make(map[string]*pendingEvent),
	}

	mw.wg.Add(1)
	go mw.run()

	return mw, nil
}

// addWatchRecursive registers a watch on root and every subdirectory beneath it.
func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return walkDirs(root, func(dir string) error {
		return w.Add(dir)
	})
}

// run is the background loop; it only ever translates fsnotify.Event into watchEvent and
// pushes them onto the queue. It never touches the file index directly.
func (mw *mountWatcher) run() {
	defer mw.wg.Done()

	for {
		select {
		case <-mw.done:
			return
		case ev, ok := <-mw.watcher.Events:
			if !ok {
				return
			}

			mw.handle(ev)
		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}

			mw.log.Debug().Err(err).Uint32("mount_id", uint32(mw.mountID)).Msg("watcher error")
		}
	}
}

// handle classifies one fsnotify event and schedules the corresponding watchEvent(s) for
// debounced delivery. fsnotify reports a rename as two events: Rename on the old path
// (mapped here to watchRenamedOld) followed by a Create on the new path. A Create on a
// file is scheduled as watchRenamedNew and then as watchAdded, since fsnotify does not
// tell a move from a fresh file; applyWatchEvent re-validates and indexes the path the
// same way for both kinds, and with a nonzero debounce the watchAdded replaces the
// still-pending watchRenamedNew.
func (mw *mountWatcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Remove != 0:
		mw.scheduleDebounced(watchEvent{kind: watchRemoved, mountID: mw.mountID, path: ev.Name})
	case ev.Op&fsnotify.Rename != 0:
		mw.scheduleDebounced(watchEvent{kind: watchRenamedOld, mountID: mw.mountID, path: ev.Name})
	case ev.Op&fsnotify.Create != 0:
		if info, err := statPath(ev.Name); err == nil && info.IsDir() {
			_ = mw.watcher.Add(ev.Name)

			return
		}

		mw.scheduleDebounced(watchEvent{kind: watchRenamedNew, mountID: mw.mountID, path: ev.Name})
		mw.scheduleDebounced(watchEvent{kind: watchAdded, mountID: mw.mountID, path: ev.Name})
	case ev.Op&fsnotify.Write != 0:
		mw.scheduleDebounced(watchEvent{kind: watchModified, mountID: mw.mountID, path: ev.Name})
	}
}

// scheduleDebounced delays ev's delivery to the queue by mw.debounce, replacing any
// still-pending event for the same path rather than enqueuing a second one. A zero
// debounce pushes ev onto the queue immediately, bypassing the pending map entirely.
func (mw *mountWatcher) scheduleDebounced(ev watchEvent) {
	if mw.debounce <= 0 {
		mw.queue.push(ev)

		return
	}

	mw.pendingMu.Lock()
	defer mw.pendingMu.Unlock()

	if p, ok := mw.pending[ev.path]; ok {
		p.ev = ev
		p.timer.Reset(mw.debounce)

		return
	}

	mw.pending[ev.path] = &pendingEvent{
		ev:    ev,
		timer: time.AfterFunc(mw.debounce, func() { mw.fireDebounced(ev.path) }),
	}
}

// fireDebounced pushes the most recent pending event for path onto the queue once its
// debounce timer has elapsed without a newer observation for the same path.
func (mw *mountWatcher) fireDebounced(path string) {
	mw.pendingMu.Lock()
	p, ok := mw.pending[path]
	if ok {
		delete(mw.pending, path)
	}
	mw.pendingMu.Unlock()

	if !ok {
		return
	}

	mw.queue.push(p.ev)
}

// Close stops the background loop, releases the underlying fsnotify.Watcher, and
// discards any pending debounce timers without flushing them to the queue.
func (mw *mountWatcher) Close() error {
	close(mw.done)
	err := mw.watcher.Close()
	mw.wg.Wait()

	mw.pendingMu.Lock()
	for path, p := range mw.pending {
		p.timer.Stop()
		delete(mw.pending, path)
	}
	mw.pendingMu.Unlock()

	return err
}
