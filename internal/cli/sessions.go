// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/lumia-app/mia-tui/internal/config"
	"github.com/lumia-app/mia-tui/internal/history"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/store"
	"github.com/lumia-app/mia-tui/internal/util"
)

// ============================================================================
// SESSIONS SUBCOMMAND
// ============================================================================

// ListSessions writes a table of stored sessions to w.
func ListSessions(w io.Writer, st *store.Store) {
	sessions := st.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions stored.")
		return
	}

	active := st.ActiveChatID()
	fmt.Fprintf(w, "%s %s %s %s\n",
		util.PadRight("", 2),
		util.PadRight("ID", 14),
		util.PadRight("MESSAGES", 8),
		"TITLE")
	for _, s := range sessions {
		marker := "  "
		if s.ID == active {
			marker = "* "
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			marker,
			util.PadRight(util.TruncateString(s.ID, 14), 14),
			util.PadRight(fmt.Sprintf("%d", len(s.Messages)), 8),
			util.TruncateString(s.Title, 60))
	}
}

// ============================================================================
// SEARCH SUBCOMMAND
// ============================================================================

// SearchHistory rebuilds the message index from the store and runs a
// substring search against it, printing one block per hit.
func SearchHistory(w io.Writer, st *store.Store, cfg *config.Config, query string, args *ArgParser) error {
	if query == "" {
		return fmt.Errorf("search: query is required")
	}

	idx, err := history.Open(cfg.Storage.IndexPath)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer idx.Close()

	// The JSON file is the source of truth; refresh the index before
	// querying so results never lag behind it.
	if err := idx.Rebuild(st.Sessions()); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	opts := history.DefaultSearchOptions()
	opts.MaxResults = args.FlagIntOrDefault("limit", opts.MaxResults)
	if sessionID, ok := args.Flag("session"); ok {
		opts.SessionID = sessionID
	}
	if role, ok := args.Flag("role"); ok {
		r := model.Role(role)
		if !r.Valid() {
			return fmt.Errorf("search: unknown role %q", role)
		}
		opts.Roles = []model.Role{r}
	}

	results, err := idx.Search(query, opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}

	for _, r := range results {
		fmt.Fprintf(w, "%s  [%s]  %s\n", util.TruncateString(r.SessionTitle, 40), r.Role, r.Timestamp)
		fmt.Fprintf(w, "  %s\n\n", util.TruncateString(util.CollapseNewlines(r.Content), 120))
	}
	fmt.Fprintf(w, "%d match(es)\n", len(results))
	return nil
}

// ============================================================================
// DELETE SUBCOMMAND
// ============================================================================

// DeleteStoredSession removes a session by id. Without --confirm it only
// previews what would be deleted.
func DeleteStoredSession(w io.Writer, st *store.Store, id string, confirmed bool) error {
	if id == "" {
		return fmt.Errorf("delete: session id is required")
	}
	s := st.Session(id)
	if s == nil {
		return fmt.Errorf("delete: no session with id %q", id)
	}

	if !confirmed {
		fmt.Fprintf(w, "Would delete %q (%d messages). Re-run with --confirm to proceed.\n",
			s.Title, len(s.Messages))
		return nil
	}

	if err := st.DeleteSession(id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Fprintf(w, "Deleted %q.\n", s.Title)
	return nil
}
