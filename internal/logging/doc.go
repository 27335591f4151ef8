// Package logging assembles structured slog loggers and formatting helpers used
// across Stepwise.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag log lines with session IDs, task names and
// correlation IDs. StreamHub keeps a bounded ring of recent events so the
// daemon can serve them over HTTP. NewNop gives tests and wiring code a
// logger that cannot fail.
package logging
