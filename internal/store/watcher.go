// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the single source of truth for chat sessions.
package store

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// STORAGE FILE WATCHER
// =============================================================================

// Watcher reloads the store when another process rewrites the storage file.
// The Lumia desktop app and this client can share one chat-storage file;
// whichever wrote last wins, and the watcher keeps the in-memory view of
// the other side fresh.
type Watcher struct {
	store     *Store
	persister *FilePersister
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	cancel    context.CancelFunc
}

// NewWatcher creates a watcher for the persister's storage file.
func NewWatcher(store *Store, persister *FilePersister, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		store:     store,
		persister: persister,
		watcher:   fw,
		debounce:  debounce,
	}, nil
}

// Watch starts watching. Watching the parent directory rather than the file
// itself survives the atomic rename the persister (and the desktop app)
// use when saving.
func (w *Watcher) Watch() error {
	dir := filepath.Dir(w.persister.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.processEvents(ctx)
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.watcher.Close()
}

// processEvents debounces bursts of write/rename events into one reload.
func (w *Watcher) processEvents(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	target := filepath.Clean(w.persister.Path())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("store: watch error: %v", err)
		}
	}
}

// reload reads the file and swaps it into the store, unless the content is
// this process's own last write.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.persister.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: reload read failed: %v", err)
		}
		return
	}

	if w.persister.isOwnWrite(data) {
		return
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Half-written or foreign content; skip this round and wait for
		// the next debounced event.
		log.Printf("store: reload parse failed: %v", err)
		return
	}

	w.store.Reload(snap)
}
