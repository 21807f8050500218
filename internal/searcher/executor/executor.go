// Package executor runs queries against decoded shard indexes. Execute scores
// one shard with three independent stages whose contributions are summed per
// document:
//
//	exact  (boost 100)  normalised query terms, exact dictionary lookup
//	prefix (boost 10)   raw query as a case-sensitive literal prefix
//	fuzzy  (boost 5)    raw query within Levenshtein distance 2
//
// Each matching posting contributes boost × occurrence count. ShardedExecutor
// fans a query out over every shard of a tenant and merges the results.
package executor

import (
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/ranker"
)

// MaxEditDistance bounds the fuzzy stage.
const MaxEditDistance = 2

// Query parses query and executes it against idx.
func Query(idx *index.Index, query string, limit int) []ranker.Hit {
	return Execute(idx, parser.Parse(query), limit)
}

// Execute scores every document of idx against plan and returns the hits
// with a positive score, best first, at most limit of them (limit <= 0 keeps
// all).
func Execute(idx *index.Index, plan *parser.QueryPlan, limit int) []ranker.Hit {
	if idx == nil || plan.Empty() {
		return []ranker.Hit{}
	}
	scores := make(ranker.Scores)
	exactStage(idx, plan.Terms, scores)
	prefixStage(idx, plan.Literal, scores)
	fuzzyStage(idx, plan.Literal, scores)
	return ranker.Rank(scores, limit)
}

func exactStage(idx *index.Index, terms []string, scores ranker.Scores) {
	for _, term := range terms {
		credit(idx.Lookup(term), ranker.BoostExact, scores)
	}
}

func prefixStage(idx *index.Index, literal string, scores ranker.Scores) {
	if literal == "" {
		return
	}
	idx.ScanPrefix(literal, func(e index.TermEntry) {
		credit(e.Postings, ranker.BoostPrefix, scores)
	})
}

func fuzzyStage(idx *index.Index, literal string, scores ranker.Scores) {
	if literal == "" {
		return
	}
	pattern := []rune(literal)
	idx.Each(func(e index.TermEntry) {
		if withinDistance(pattern, e.Term, MaxEditDistance) {
			credit(e.Postings, ranker.BoostFuzzy, scores)
		}
	})
}

func credit(postings index.PostingList, boost float64, scores ranker.Scores) {
	for _, p := range postings {
		scores.Add(p.Ref, boost, p.Frequency)
	}
}
