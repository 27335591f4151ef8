// Package session owns per-connection task progress.
//
// Advance is the pure transition function shared by live sessions and the
// stateless evaluate endpoint. Controller wraps it with frame serialization,
// the terminal short-circuit and the suspend/resume hand-off protocol.
// Resuming is a hard reset of progress bookkeeping: the reported step starts
// again at revision zero with cleared counters.
package session
