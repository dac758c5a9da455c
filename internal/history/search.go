// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"strings"

	"github.com/lumia-app/mia-tui/internal/model"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// Result is a single matching message with its session context.
type Result struct {
	MessageID    string
	SessionID    string
	SessionTitle string
	Role         model.Role
	Content      string
	Timestamp    string
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited).
	MaxResults int

	// Roles filters by message role (empty = all roles).
	Roles []model.Role

	// SessionID restricts the search to one session (empty = all).
	SessionID string
}

// DefaultSearchOptions returns default search options.
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults: 50,
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// Search finds messages whose content contains the query,
// case-insensitively. Results come back newest-session-first in
// transcript order within a session.
func (idx *Index) Search(query string, options *SearchOptions) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}
	if options == nil {
		options = DefaultSearchOptions()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	sqlQuery := `
		SELECT m.id, m.session_id, s.title, m.role, m.content, m.timestamp
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.content LIKE ? ESCAPE '\'
	`
	args := []interface{}{"%" + escapeLike(query) + "%"}

	if len(options.Roles) > 0 {
		placeholders := make([]string, len(options.Roles))
		for i, r := range options.Roles {
			placeholders[i] = "?"
			args = append(args, string(r))
		}
		sqlQuery += " AND m.role IN (" + strings.Join(placeholders, ",") + ")"
	}

	if options.SessionID != "" {
		sqlQuery += " AND m.session_id = ?"
		args = append(args, options.SessionID)
	}

	sqlQuery += " ORDER BY s.rowid, m.position"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var role string
		if err := rows.Scan(&r.MessageID, &r.SessionID, &r.SessionTitle, &role, &r.Content, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		r.Role = model.Role(role)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return results, nil
}

// escapeLike escapes LIKE metacharacters so the query matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
