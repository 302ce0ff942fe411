// Package tokenizer normalises document and query text into index terms. It
// lower-cases input, extracts alphanumeric runs of three or more characters,
// and drops an extended stop-word list tuned for legal case documents.
package tokenizer

import "strings"

const minTermLength = 3

// stopWords is the extended legal-domain stop-word list. Query tokenization
// must use the same list as document tokenization, so it lives here once.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "with": {}, "was": {}, "this": {}, "that": {}, "from": {},
	"have": {}, "has": {}, "had": {}, "been": {}, "were": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"must": {}, "can": {}, "shall": {}, "his": {}, "her": {}, "their": {},
	"our": {}, "your": {}, "its": {}, "who": {}, "what": {}, "where": {},
	"when": {}, "why": {}, "how": {}, "which": {}, "whom": {}, "said": {},
	"did": {}, "does": {}, "done": {}, "being": {}, "able": {},
	"about": {}, "above": {}, "after": {}, "all": {}, "also": {},
	"any": {}, "because": {}, "before": {}, "between": {}, "both": {},
	"during": {}, "each": {}, "few": {}, "into": {}, "more": {},
	"most": {}, "other": {}, "out": {}, "over": {}, "same": {},
	"some": {}, "such": {}, "than": {}, "then": {}, "there": {},
	"these": {}, "those": {}, "through": {}, "under": {}, "until": {},
	"very": {}, "while": {},
}

// Tokenize splits text into normalised index terms. Runes outside [a-z0-9]
// act as boundaries; runs shorter than three characters and stop-words are
// dropped. Duplicate terms are kept: callers that need frequencies count
// them, and query scoring weighs repeated query terms once per occurrence.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minTermLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// IsStopWord reports whether the given (already lower-cased) term is on the
// stop-word list.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}
