// Package daemon coordinates the long-running Stepwise process.
//
// It wires the task registry, detector, frame validator, hand-off desk and
// instruction image store into a single lifecycle with flock-based locking
// to prevent multiple instances. Clients stream frames over the /ws
// websocket, one session controller per connection; the HTTP API under
// /api exposes status, task catalogs, stateless evaluation, live sessions,
// pending hand-offs and recent log events.
//
// Keep orchestration logic here: progression semantics live in the session
// and rules packages while the daemon focuses on transport, startup and
// shutdown.
package daemon
