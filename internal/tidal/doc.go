// Package tidal provides an HTTP client for the Tidal remote-control API.
//
// # Overview
//
// The remote-control API is a small local HTTP service that exposes the state
// of a running Tidal player and accepts transport commands. It has no
// authentication and no TLS; host and port come from configuration
// (default 127.0.0.1:3665).
//
// # API Endpoints
//
//   - GET /now-playing: current item, paused flag, position, volume, repeat, shuffle
//   - PUT /play, /pause, /next, /previous
//   - PUT /seek?position=<seconds>
//   - PUT /volume?level=<0-100>
//   - PUT /repeat?state=<off|track|context>
//   - PUT /shuffle?state=<true|false>
//
// The repeat field of /now-playing is an integer code (0=off, 1=context,
// 2=track). RepeatFromCode maps it; unknown codes are reported as such rather
// than coerced.
//
// # Error Handling
//
// Callers need to tell an unreachable endpoint apart from one that answers
// with an error, so failures come back in three shapes:
//
//   - ErrUnreachable (check with IsTransport): the request never got a response
//   - *StatusError: the server answered with a non-2xx status
//   - *PayloadError: the body did not decode or carried an error field
//
// # Retries
//
// Requests go through go-retryablehttp. /now-playing is never retried, since
// the poller owns retry timing. Commands are retried only when the dial itself
// failed, so commands like next are never delivered twice.
package tidal
