// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the single source of truth for chat sessions.
package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/util"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the full persisted state of the store.
type Snapshot struct {
	Sessions     []*model.ChatSession
	ActiveChatID string
}

// snapshotJSON is the wire form. activeChatId serializes as null when no
// session is active, matching the desktop app's storage shape.
type snapshotJSON struct {
	Sessions     []*model.ChatSession `json:"sessions"`
	ActiveChatID *string              `json:"activeChatId"`
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Sessions: s.Sessions}
	if s.Sessions == nil {
		out.Sessions = []*model.ChatSession{}
	}
	if s.ActiveChatID != "" {
		id := s.ActiveChatID
		out.ActiveChatID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Sessions = in.Sessions
	if s.Sessions == nil {
		s.Sessions = []*model.ChatSession{}
	}
	if in.ActiveChatID != nil {
		s.ActiveChatID = *in.ActiveChatID
	} else {
		s.ActiveChatID = ""
	}
	return nil
}

// =============================================================================
// PERSISTER
// =============================================================================

// Persister is the durable storage behind the store.
type Persister interface {
	// Save writes the full snapshot.
	Save(snap Snapshot) error

	// Load reads the snapshot. found is false when no snapshot exists yet.
	Load() (snap Snapshot, found bool, err error)
}

// =============================================================================
// FILE PERSISTER
// =============================================================================

// FilePersister stores the snapshot as one JSON document on disk, written
// atomically with fsync so a crash never leaves a torn file.
type FilePersister struct {
	path string

	mu        sync.Mutex
	lastSaved []byte
}

// NewFilePersister creates a persister writing to the given path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the storage file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Save implements Persister.
func (p *FilePersister) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := util.AtomicWriteFile(p.path, data, 0644); err != nil {
		return err
	}

	p.mu.Lock()
	p.lastSaved = data
	p.mu.Unlock()
	return nil
}

// Load implements Persister.
func (p *FilePersister) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// isOwnWrite reports whether the current file content is the last snapshot
// this process wrote. The watcher uses it to ignore its own writes.
func (p *FilePersister) isOwnWrite(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSaved != nil && string(p.lastSaved) == string(data)
}
