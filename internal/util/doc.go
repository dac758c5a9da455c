// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the mia application.
//
// It contains the atomic file writer used by the session store and the
// width-aware string helpers used by the terminal front ends.
package util
