// Package daemonctl talks to a running stepwise daemon over its HTTP API
// and manages the daemon process for the CLI's start and stop commands.
package daemonctl
