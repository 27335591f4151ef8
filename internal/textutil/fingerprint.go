package textutil

import (
	"math"
	"strings"
	"unicode"
)

// Fingerprint is a character bigram frequency vector.
type Fingerprint struct {
	grams map[string]float64
	norm  float64
}

// NewFingerprint builds a fingerprint from text. Letters are lowercased and
// runs of non-alphanumeric characters collapse to a single boundary. Returns
// nil when the text has no letters or digits.
func NewFingerprint(text string) *Fingerprint {
	runes := normalize(text)
	if len(runes) == 0 {
		return nil
	}
	padded := make([]rune, 0, len(runes)+2)
	padded = append(padded, '^')
	padded = append(padded, runes...)
	padded = append(padded, '$')

	counts := make(map[string]float64, len(padded))
	for i := 0; i+1 < len(padded); i++ {
		counts[string(padded[i:i+2])]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{grams: counts, norm: math.Sqrt(norm)}
}

// GramCount returns the number of unique bigrams in the fingerprint.
func (f *Fingerprint) GramCount() int {
	if f == nil {
		return 0
	}
	return len(f.grams)
}

func normalize(text string) []rune {
	var out []rune
	gap := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && len(out) > 0 {
				out = append(out, ' ')
			}
			gap = false
			out = append(out, unicode.ToLower(r))
			continue
		}
		gap = true
	}
	return out
}
