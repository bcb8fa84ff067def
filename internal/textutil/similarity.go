package textutil

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(NormalizeTitle(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Similarity returns the cosine similarity of the token frequency vectors of
// a and b, in [0, 1]. Text without tokens scores 0.
func Similarity(a, b string) float64 {
	va, na := termVector(a)
	vb, nb := termVector(b)
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for token, count := range va {
		dot += count * vb[token]
	}
	return dot / (na * nb)
}

func termVector(text string) (map[string]float64, float64) {
	tokens := Tokenize(text)
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return counts, math.Sqrt(sum)
}
