// Package api defines wire-format types and converters for the frame socket
// and the HTTP API. It translates session, catalog and hand-off models into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// ToServer/ToClient: frame socket messages. A ToClient always carries the
// StateTuple (step, stepId, revision, confirmation counters) the client
// stores and may send back with a "restore" message.
//
// TaskDetail, SessionInfo, HandoffTicket, EvaluateRequest/Response: HTTP
// payloads for the daemon API.
//
// # Converters
//
// FromState/ToState: session.State <-> StateTuple. StepID 0 and the name
// "start" are the start sentinel.
//
// FromResult/FromError: controller results and failures -> ToClient, with
// the failure classified by services.StatusFor.
//
// ToDetectionSet: request detections with labels or class ids -> detection.Set.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Byte payloads (frames, images) travel as
// base64 strings through encoding/json. Timestamps use RFC3339 with
// milliseconds.
package api
