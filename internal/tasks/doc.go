// Package tasks defines the shipped guided tasks. A Variant pairs a step
// catalog with a rule table so one engine drives every task.
package tasks
