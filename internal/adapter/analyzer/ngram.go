package analyzer

import "strings"

// Character n-gram similarity for the reasoning layer. This deliberately
// operates on stored text, not embeddings, so the reasoning graph stays
// auditable independent of any embedding model.

// NGramSet returns the set of character n-grams of the normalized text.
// Normalization lowercases and collapses whitespace runs to single spaces.
func NGramSet(text string, n int) map[string]struct{} {
	norm := normalize(text)
	set := make(map[string]struct{})
	runes := []rune(norm)
	if len(runes) < n {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Containment returns |a∩b| / |a|: the share of a's grams found in b.
func Containment(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(intersection(a, b)) / float64(len(a))
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for g := range a {
		if _, ok := b[g]; ok {
			n++
		}
	}
	return n
}

var negationMarkers = []string{
	" not ", " no ", " never ", " cannot ", "n't ", " without ",
	" neither ", " nor ", " fails ", " lacks ", " refutes ", " contradicts ",
}

// HasNegation reports whether the text carries a negation marker.
func HasNegation(text string) bool {
	padded := " " + normalize(text) + " "
	for _, m := range negationMarkers {
		if strings.Contains(padded, m) {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
