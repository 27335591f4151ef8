package detection

import (
	"context"
	"sort"

	"stepwise/internal/geometry"
)

// Class is the detector's label index for a task variant. Zero is reserved
// for the background class and never appears in a Set.
type Class int

// Set maps each class to its detections for one frame, already filtered by
// confidence and de-duplicated by the detector. A class absent from the map
// is identical to an empty slice.
type Set map[Class][]geometry.BoundingBox

// Detector turns one encoded image into a Set.
type Detector interface {
	Detect(ctx context.Context, image []byte) (Set, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(ctx context.Context, image []byte) (Set, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, image []byte) (Set, error) {
	return f(ctx, image)
}

// Boxes returns the detections for class c. The result is nil for absent
// classes and for a nil Set.
func (s Set) Boxes(c Class) []geometry.BoundingBox {
	if s == nil {
		return nil
	}
	return s[c]
}

// Count returns how many detections class c has.
func (s Set) Count(c Class) int { return len(s.Boxes(c)) }

// Has reports whether class c has at least one detection.
func (s Set) Has(c Class) bool { return s.Count(c) > 0 }

// Empty reports whether no class has any detection.
func (s Set) Empty() bool {
	for _, boxes := range s {
		if len(boxes) > 0 {
			return false
		}
	}
	return true
}

// Classes returns the classes with at least one detection in ascending order.
func (s Set) Classes() []Class {
	out := make([]Class, 0, len(s))
	for c, boxes := range s {
		if len(boxes) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filter returns a copy keeping only well-formed boxes scoring at least
// threshold. Detectors already apply their own threshold; this guards against
// remote detectors configured looser than the engine expects.
func (s Set) Filter(threshold float64) Set {
	out := make(Set, len(s))
	for c, boxes := range s {
		if c <= 0 {
			continue
		}
		kept := make([]geometry.BoundingBox, 0, len(boxes))
		for _, b := range boxes {
			if !b.Valid() || b.Score < threshold {
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) > 0 {
			out[c] = kept
		}
	}
	return out
}
