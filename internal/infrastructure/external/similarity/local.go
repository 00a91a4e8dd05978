package similarity

import (
	"context"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Local is the fallback similarity provider. It scores texts by normalized
// Levenshtein distance, which is crude next to embeddings but keeps vibe
// matching alive when the service is down.
// Implements Provider.
type Local struct{}

// NewLocal creates the local fallback provider.
func NewLocal() *Local {
	return &Local{}
}

// Compare scores two texts in [0, 1], 1 for identical normalized texts.
func (l *Local) Compare(_ context.Context, a, b string) (float64, error) {
	na := normalizeText(a)
	nb := normalizeText(b)

	if na == "" && nb == "" {
		return 1, nil
	}

	longest := len([]rune(na))
	if n := len([]rune(nb)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0, nil
	}

	distance := fuzzy.LevenshteinDistance(na, nb)
	score := 1 - float64(distance)/float64(longest)
	if score < 0 {
		score = 0
	}

	return score, nil
}

// normalizeText lowercases and collapses whitespace so formatting differences
// do not count as distance.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
