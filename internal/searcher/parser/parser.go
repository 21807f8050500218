// Package parser prepares a raw query string for the three match stages.
// The exact stage uses normalised, de-duplicated terms; the prefix and fuzzy
// stages use the raw string untouched.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/tokenizer"
)

type QueryPlan struct {
	// Terms are the tokenized query terms, in first-seen order, without
	// duplicates.
	Terms []string
	// Literal is the raw query used as prefix and fuzzy pattern. It is
	// empty when the query is empty, which disables both stages.
	Literal  string
	RawQuery string
}

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		Literal:  query,
		RawQuery: query,
	}
	seen := make(map[string]struct{})
	for _, term := range tokenizer.Terms(query) {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		plan.Terms = append(plan.Terms, term)
	}
	return plan
}

// Empty reports whether no stage can match anything.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0 && p.Literal == ""
}
