// Package search implements hybrid keyword + vector retrieval with score
// fusion and LLM reranking.
package search

import (
	"regexp"
	"strings"
)

// stopWords are dropped during keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "should": {}, "could": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"whose": {}, "where": {}, "when": {}, "why": {}, "how": {}, "about": {},
	"into": {}, "through": {}, "during": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// ExtractKeywords pulls meaningful search terms from a query: lower-cased,
// punctuation stripped, tokens of length <= 2 and stop words dropped,
// de-duplicated in order of first occurrence.
func ExtractKeywords(query string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(query), " ")

	seen := map[string]struct{}{}
	var keywords []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}
