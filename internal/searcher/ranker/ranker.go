// Package ranker holds the fixed match-stage boosts and the ordering rule
// shared by per-shard scoring and the cross-shard merge: score descending,
// ties broken by ascending ref.
package ranker

import (
	"sort"
)

const (
	BoostExact  = 100.0
	BoostPrefix = 10.0
	BoostFuzzy  = 5.0
)

// Hit is one document's score within a query.
type Hit struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}

// Less reports whether a ranks ahead of b.
func Less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ref < b.Ref
}

// Scores accumulates per-ref contributions.
type Scores map[string]float64

// Add credits ref with boost × frequency.
func (s Scores) Add(ref string, boost float64, frequency int) {
	s[ref] += boost * float64(frequency)
}

// Rank turns accumulated scores into hits with a positive score, ordered by
// Less and truncated to limit. A limit of zero or less keeps every hit.
func Rank(scores Scores, limit int) []Hit {
	result := make([]Hit, 0, len(scores))
	for ref, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, Hit{Ref: ref, Score: score})
	}
	Sort(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Sort orders hits in place by Less.
func Sort(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return Less(hits[i], hits[j])
	})
}

// Refs projects hits to their references, preserving order.
func Refs(hits []Hit) []string {
	refs := make([]string, len(hits))
	for i, h := range hits {
		refs[i] = h.Ref
	}
	return refs
}
