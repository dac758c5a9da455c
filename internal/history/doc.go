// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a SQLite index of every message across all
// chat sessions so past conversations can be searched without loading
// and scanning the full storage file.
//
// The index is a derived artifact. The JSON storage file remains the
// source of truth; the index is rebuilt from a store snapshot whenever
// sessions change and can be deleted at any time without data loss.
package history
