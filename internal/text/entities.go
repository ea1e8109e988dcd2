package text

import "sort"

// MaxEntities bounds how many terms Entities returns per text.
const MaxEntities = 5

// Entities extracts up to MaxEntities salient keywords, most frequent first.
// Ties break by first occurrence in the text, so the ranking is stable for
// fixed input. Indexing and retrieval share this single implementation so
// graph entity nodes and retrieval-context entity terms coincide.
func Entities(s string) []string {
	tokens := Tokenize(s)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int, len(tokens))
	firstSeen := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if counts[tok] == 0 {
			firstSeen[tok] = i
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > MaxEntities {
		order = order[:MaxEntities]
	}
	return order
}
