// Package geometry holds the bounding box value type and the spatial
// predicates transition rules are written in.
//
// Every function is pure. Tolerances and ratios are always supplied by the
// caller so rule tables can be tuned without touching this package. Image
// coordinates follow the detector convention: x grows to the right and y
// grows downward, so "above" means a smaller y.
package geometry
