// Package catalog holds the ordered step lists of the guided tasks.
//
// A Catalog is built once at process start and never mutated. Steps are
// addressed by their wire identifier or, for hand-off resumes, by their name
// compared with Unicode case folding.
package catalog
