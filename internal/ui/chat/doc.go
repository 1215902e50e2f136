// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen terminal chat view.
//
// The Model is a passive renderer: it draws the latest session snapshot and
// turns key presses into driver calls, which run as tea.Cmds off the event
// loop. Snapshots reach the program through session.Store.Watch.
//
// # Keys
//
//   - enter: submit the input line
//   - ctrl+p: open the persona picker (up/down, enter to select, esc to close)
//   - ctrl+r: retry after a failure
//   - pgup/pgdown: scroll the transcript
//   - ctrl+c, esc: quit
package chat
