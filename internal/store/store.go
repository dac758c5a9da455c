// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the single source of truth for chat sessions.
package store

import (
	"log"
	"sync"

	"github.com/lumia-app/mia-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// StoreError represents a store-level error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrSessionNotFound is returned when an operation names a session id that
// does not exist. The desktop app silently drops messages addressed to a
// missing session; that was a bug, not a contract.
var ErrSessionNotFound = &StoreError{Message: "session not found"}

// =============================================================================
// STORE
// =============================================================================

// Store holds all chat sessions and the active session pointer.
//
// Safe for concurrent use. Mutations are serialized by a mutex and each one
// persists the full snapshot before returning, then notifies subscribers.
type Store struct {
	mu           sync.Mutex
	sessions     []*model.ChatSession
	activeChatID string

	persister Persister

	subsMu sync.Mutex
	subs   map[int]func()
	nextID int
}

// New creates an empty store with no persistence.
func New() *Store {
	return &Store{subs: make(map[int]func())}
}

// NewWithPersister creates a store backed by the given persister and loads
// any existing snapshot from it.
func NewWithPersister(p Persister) (*Store, error) {
	s := New()
	s.persister = p

	snap, found, err := p.Load()
	if err != nil {
		return nil, err
	}
	if found {
		s.restore(snap)
	}
	return s, nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// AddSession inserts a session at the front of the list, preserving the
// most-recent-first ordering the history panel shows.
func (s *Store) AddSession(session *model.ChatSession) {
	s.mu.Lock()
	s.sessions = append([]*model.ChatSession{session.Clone()}, s.sessions...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// SessionUpdate names the fields UpdateSession may merge. Only the title is
// mutable; committed messages never change.
type SessionUpdate struct {
	Title *string
}

// UpdateSession merges the given fields into the session matching id.
// Returns ErrSessionNotFound when no session matches.
func (s *Store) UpdateSession(id string, upd SessionUpdate) error {
	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if upd.Title != nil {
		sess.Title = *upd.Title
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteSession removes the session matching id. The active pointer is left
// untouched even when it named the deleted session; consumers resolve the
// dangling pointer through EnsureActive on their next read.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	idx := -1
	for i, sess := range s.sessions {
		if sess.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetActiveChat sets the active session pointer. An empty id clears it.
// The id is not validated here; EnsureActive applies the fallback rule.
func (s *Store) SetActiveChat(id string) {
	s.mu.Lock()
	s.activeChatID = id
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// AddMessage appends a message to the session matching chatID. Returns
// ErrSessionNotFound instead of silently dropping the message.
func (s *Store) AddMessage(chatID string, msg model.Message) error {
	s.mu.Lock()
	sess := s.findLocked(chatID)
	if sess == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Sessions returns a deep copy of the session list, most recent first.
func (s *Store) Sessions() []*model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Session returns a deep copy of the session matching id, or nil.
func (s *Store) Session(id string) *model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.findLocked(id); sess != nil {
		return sess.Clone()
	}
	return nil
}

// ActiveChatID returns the active session pointer, which may be empty or
// dangling until EnsureActive is called.
func (s *Store) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChatID
}

// Count returns the number of sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EnsureActive resolves the active session, applying the fallback rule:
// if the pointer names an existing session, that session is returned; if it
// dangles and sessions exist, the first (most recent) session becomes
// active; if the store is empty, a fresh session is created and activated.
func (s *Store) EnsureActive() *model.ChatSession {
	s.mu.Lock()
	if sess := s.findLocked(s.activeChatID); sess != nil {
		clone := sess.Clone()
		s.mu.Unlock()
		return clone
	}

	if len(s.sessions) > 0 {
		s.activeChatID = s.sessions[0].ID
		clone := s.sessions[0].Clone()
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
		return clone
	}

	fresh := model.NewChatSession()
	s.sessions = []*model.ChatSession{fresh}
	s.activeChatID = fresh.ID
	clone := fresh.Clone()
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return clone
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a callback invoked after every mutation. Returns an
// unsubscribe function. Callbacks run outside the store lock, so they may
// safely read back from the store.
func (s *Store) Subscribe(fn func()) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subsMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// =============================================================================
// INTERNAL
// =============================================================================

// findLocked returns the live session matching id. Caller must hold mu.
func (s *Store) findLocked(id string) *model.ChatSession {
	if id == "" {
		return nil
	}
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// persistLocked writes the current snapshot through the persister. Caller
// must hold mu. Persistence failures are logged, not propagated: losing a
// write must not wedge the chat surface mid-turn.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		log.Printf("store: failed to persist snapshot: %v", err)
	}
}

// snapshotLocked builds a deep-copied snapshot. Caller must hold mu.
func (s *Store) snapshotLocked() Snapshot {
	sessions := make([]*model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		sessions[i] = sess.Clone()
	}
	return Snapshot{Sessions: sessions, ActiveChatID: s.activeChatID}
}

// Snapshot returns a deep copy of the full store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// restore replaces store state from a snapshot.
func (s *Store) restore(snap Snapshot) {
	s.mu.Lock()
	s.sessions = make([]*model.ChatSession, len(snap.Sessions))
	for i, sess := range snap.Sessions {
		s.sessions[i] = sess.Clone()
	}
	s.activeChatID = snap.ActiveChatID
	s.mu.Unlock()
}

// Reload replaces store state from a snapshot and notifies subscribers.
// Used by the file watcher when another process rewrote the storage file.
func (s *Store) Reload(snap Snapshot) {
	s.restore(snap)
	s.notify()
}
