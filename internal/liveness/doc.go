// Package liveness implements the passive recovery detector used while the
// remote endpoint is down.
//
// Instead of polling a dead endpoint every few seconds, the poller starts a
// Listener on a local port and waits for the playback agent to connect once
// it is back. Any inbound connection is the signal; its content does not
// matter. The listener closes its socket on the first connection and goes
// back to Inactive.
//
// Lifecycle:
//
//	Inactive --Start--> Listening --connection/Stop--> Inactive
//	                        \--bind or serve failure--> Errored
//
// Errored is sticky: Status().Errored stays true after Stop, so callers can
// stop retrying a listener that cannot work on this host.
//
// Connections are served by net/http so that websocket clients (the usual
// playback agents) complete their handshake and receive a normal close frame
// instead of a reset. Notify is the client side of that exchange.
package liveness
