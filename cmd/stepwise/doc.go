// Command stepwise is the operator CLI for the stepwise daemon: it serves
// sessions, inspects task catalogs, evaluates detections offline, replays
// recorded sessions and answers remote-expert hand-offs.
package main
