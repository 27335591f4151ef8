package textutil

import "strings"

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for gram, count := range a.grams {
		if other, ok := b.grams[gram]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// Suggest returns the candidate most similar to input when its score reaches
// minScore. Exact case-insensitive matches are never suggested. Ties go to
// the earlier candidate.
func Suggest(input string, candidates []string, minScore float64) (string, bool) {
	probe := NewFingerprint(input)
	if probe == nil {
		return "", false
	}
	best, bestScore := "", 0.0
	for _, candidate := range candidates {
		if strings.EqualFold(strings.TrimSpace(input), candidate) {
			continue
		}
		score := CosineSimilarity(probe, NewFingerprint(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if best == "" || bestScore < minScore {
		return "", false
	}
	return best, true
}
