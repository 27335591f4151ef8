// Package textutil offers fuzzy matching of short identifiers such as step
// and task names.
//
// Names are reduced to character bigram fingerprints (with word boundary
// markers) and compared by cosine similarity. Suggest picks the closest
// candidate for "did you mean" hints in lookup errors.
package textutil
