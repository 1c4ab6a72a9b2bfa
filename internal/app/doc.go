// Package app wires configuration, the remote client, the player state store,
// the liveness listener and the TUI together, and owns the Poller that keeps
// the store in sync with the remote endpoint.
//
// # Poller
//
// The poller ticks once per PollInterval (one second by default). Each tick
// either counts down a pending backoff or issues exactly one GET
// /now-playing; a request always completes before the next tick is looked at.
//
//	            success
//	  ┌──────────────────────────────┐
//	  ▼                              │
//	Normal ──transport failure──> Backoff (ErrorDelay × failures)
//	  ▲                              │
//	  │                   failures reach FailureThreshold
//	  │                              ▼
//	  └──signal or success──── Fallback (listener up, BackupInterval)
//
// Transport failures (the endpoint never answered) escalate linearly. Once
// FailureThreshold is reached the player is marked stopped, the liveness
// listener is started and the poller only checks actively every
// BackupInterval. A connection to the listener ends Fallback on the very
// next tick.
//
// Responses that arrive but cannot be used (non-2xx, an error field, a
// payload the store rejects) back off for a fixed ErrorDelay and never
// escalate: the endpoint is alive.
//
// A listener that cannot bind is not retried; the poller stays in Backoff
// with the long BackupInterval instead.
//
// # Commands
//
// Run drives the TUI. Status prints one /now-playing summary. Notify sends a
// liveness signal, which is what a recovering playback agent does.
package app
