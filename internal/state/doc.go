// Package state holds the current player state shared by the poller and the UI.
//
// # Overview
//
// Store is the single source of truth for what the remote player is doing.
// The poller feeds it /now-playing payloads through ApplySnapshot; the UI
// reads snapshots and issues commands (play, seek, volume, ...) through it.
//
// # Position
//
// Position is never stored as a plain field. The store keeps the pair
// (base position, capture time) and derives the effective position:
//
//	playing: base + (now - capturedAt)
//	paused:  base
//
// Every explicit write (local seek, remote sync) replaces both halves, so
// EffectivePosition returns exactly the written value right after a write.
// Toggling play/pause rebases the pair at the current effective position.
//
// # Reconciliation Cooldown
//
// Volume, repeat and shuffle can be changed locally. The remote side takes a
// moment to reflect such a change, and until it does /now-playing keeps
// reporting the old value. Each of these fields carries a counter of
// consecutive syncs in which the server disagreed with the local value:
//
//	disagree: counter++
//	agree:    counter = 0
//	overwrite when the field is unset or counter >= CooldownThreshold (2)
//
// A successful local write resets the counter. Unrecognized repeat codes are
// ignored for that sync.
//
// # Commands
//
// Commands are sent first and applied locally only after the remote
// acknowledged them, so a failed command needs no rollback; it is logged and
// dropped. RequestSeek is guarded by a pending flag: a seek issued while
// another is in flight is discarded, and the flag is cleared when the command
// settles whether or not it succeeded.
//
// # Observers
//
// Subscribe registers a callback that receives a PlayerState after every
// mutation batch. ApplySnapshot notifies exactly once. Callbacks run
// synchronously on the mutating goroutine, outside the store lock, and must
// not block.
//
// # Concurrency Model
//
// A sync.Mutex guards all fields. The lock is never held across network I/O
// or observer callbacks.
package state
