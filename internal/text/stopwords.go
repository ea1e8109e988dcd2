package text

// stopwords is the fixed closed list of words never treated as keywords.
var stopwords = func() map[string]struct{} {
	words := []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
		"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
		"how", "man", "new", "now", "old", "see", "two", "way", "who", "its",
		"did", "yes", "they", "this", "that", "with", "have", "from", "will",
		"been", "were", "when", "what", "your", "said", "each", "which",
		"their", "them", "then", "than", "there", "these", "those", "some",
		"such", "into", "about", "between", "through", "during", "before",
		"after", "above", "below", "over", "under", "again", "further",
		"more", "most", "other", "only", "own", "same", "very", "just",
		"should", "would", "could", "also", "because", "while", "where",
		"does", "doing", "being", "both", "any", "few", "nor",
		"too", "once", "here", "why", "off",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
