package retrieval

import (
	"regexp"
	"strings"
)

// synonymTable maps common query words to a substitute used for one expansion.
// Deliberately small: each entry costs one extra embedding per search.
var synonymTable = map[string]string{
	"make":      "create",
	"create":    "build",
	"build":     "make",
	"find":      "search",
	"search":    "find",
	"show":      "display",
	"fix":       "repair",
	"error":     "problem",
	"problem":   "issue",
	"fast":      "quick",
	"important": "key",
	"use":       "usage",
	"delete":    "remove",
	"note":      "document",
	"notes":     "documents",
}

var whoIsPattern = regexp.MustCompile(`(?i)^(who\s+is|who\s+was|who's)\s+(.+?)\??$`)

// ExpandQuery generates up to 3 paraphrases of the query. Each expansion is
// embedded independently and the maximum similarity across the original and
// all expansions is kept per chunk: a recall-for-cost trade we accept.
func ExpandQuery(query string) []string {
	var expansions []string

	// "who is X" style questions reformulate well as biography lookups.
	if m := whoIsPattern.FindStringSubmatch(strings.TrimSpace(query)); m != nil {
		subject := strings.TrimSpace(m[2])
		expansions = append(expansions, "about "+subject)
		expansions = append(expansions, subject+" biography background")
	}

	// One synonym-substituted variant.
	words := strings.Fields(query)
	substituted := false
	variant := make([]string, len(words))
	for i, w := range words {
		key := strings.ToLower(strings.Trim(w, ".,!?"))
		if replacement, ok := synonymTable[key]; ok && !substituted {
			variant[i] = replacement
			substituted = true
		} else {
			variant[i] = w
		}
	}
	if substituted {
		expansions = append(expansions, strings.Join(variant, " "))
	}

	if len(expansions) > 3 {
		expansions = expansions[:3]
	}
	return expansions
}
