// Package config loads the bridge configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tidalbridge/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults for those
//
// # Example
//
//	host = "127.0.0.1"            # remote-control API
//	port = 3665
//	previous_restarts_track = true
//	poll_seconds = 1
//	failure_threshold = 5         # transport failures before fallback
//	backup_seconds = 300          # active check interval while in fallback
//	log_file = "~/.local/state/tidalbridge/tidalbridge.log"
//
//	[listen]                      # liveness listener
//	enabled = true
//	host = "127.0.0.1"
//	port = 3666
//
// Ports outside 1-65535 are rejected. Non-positive intervals and thresholds
// fall back to their defaults.
package config
