// Package ui renders the now-playing panel with Bubble Tea.
//
// The panel is a thin view over state.Store. It never talks to the remote
// endpoint directly: key presses become store commands run as tea.Cmds, and
// the store's observer callback pushes fresh PlayerState values into the
// program through a one-slot channel. A 250ms tick re-reads the store so the
// progress bar advances between syncs, refreshes the connection banner and,
// once a second, tails the bridge log.
//
// # Layout
//
//	tidalbridge  [playing]  [normal]  127.0.0.1:3665
//	╭──────────────────────────────────────────────╮
//	│ Title                                        │
//	│ Artist, Artist                               │
//	│ Album                                        │
//	│                                              │
//	│ 1:23 ██████████░░░░░░░░░░░░░░░░░░░░░ 3:20    │
//	│ vol 40%   repeat context   shuffle off       │
//	╰──────────────────────────────────────────────╯
//	 Remote unreachable, retrying in 6s
//	 poller: now-playing unreachable (2 in a row) ...
//	 space Play/pause • n Next track • ...
//
// # Preferences
//
// Theme cycling (T) and the key hint toggle (?) are written back to
// prefs.toml immediately.
package ui
