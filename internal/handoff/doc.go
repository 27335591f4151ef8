// Package handoff coordinates suspending a session to a remote expert.
//
// The websocket connection opens a ticket when the client starts a side
// conversation and then waits on the Desk. The expert reports the step to
// resume at through the HTTP API; the waiter resumes the session controller
// with that step name.
package handoff
