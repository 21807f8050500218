package executor

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/ranker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textConfig = index.Config{Fields: []string{"text"}, Ref: "id"}

func mustBuild(t testing.TB, docs ...index.Document) *index.Index {
	t.Helper()
	idx, err := index.Build(docs, textConfig)
	require.NoError(t, err)
	return idx
}

func scoreOf(hits []ranker.Hit, ref string) float64 {
	for _, h := range hits {
		if h.Ref == ref {
			return h.Score
		}
	}
	return 0
}

func TestExactMatch(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "D1", "text": "apple pie"},
		index.Document{"id": "D2", "text": "apple sauce"},
		index.Document{"id": "D3", "text": "banana bread"},
	)
	hits := Query(idx, "apple", 25)
	assert.Equal(t, []string{"D1", "D2"}, ranker.Refs(hits))
	// exact + prefix ("apple" starts with "apple") + fuzzy (distance 0)
	assert.Equal(t, 115.0, hits[0].Score)
}

func TestFuzzyOnlyMatch(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "D1", "text": "apple pie"},
		index.Document{"id": "D2", "text": "apple sauce"},
		index.Document{"id": "D3", "text": "banana bread"},
	)
	hits := Query(idx, "aple", 25)
	assert.Equal(t, []string{"D1", "D2"}, ranker.Refs(hits))
	for _, h := range hits {
		assert.Zero(t, int(h.Score)%int(ranker.BoostFuzzy), "only fuzzy contributions expected")
		assert.Less(t, h.Score, ranker.BoostPrefix+ranker.BoostFuzzy*3)
	}
	assert.Equal(t, ranker.BoostFuzzy, scoreOf(hits, "D2"))
}

func TestBoostOrdering(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "exact", "text": "apple"},
		index.Document{"id": "prefix", "text": "applesauce"},
		index.Document{"id": "fuzzy", "text": "aple"},
	)
	hits := Query(idx, "apple", 0)
	require.Equal(t, []string{"exact", "prefix", "fuzzy"}, ranker.Refs(hits))
	assert.Equal(t, ranker.BoostExact+ranker.BoostPrefix+ranker.BoostFuzzy, scoreOf(hits, "exact"))
	assert.Equal(t, ranker.BoostPrefix, scoreOf(hits, "prefix"))
	assert.Equal(t, ranker.BoostFuzzy, scoreOf(hits, "fuzzy"))
}

func TestOccurrenceCountScales(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "twice", "text": "kiwi kiwi"},
		index.Document{"id": "once", "text": "kiwi"},
	)
	hits := Query(idx, "kiwi", 0)
	assert.Equal(t, []string{"twice", "once"}, ranker.Refs(hits))
	assert.Equal(t, 2*scoreOf(hits, "once"), scoreOf(hits, "twice"))
}

func TestPrefixIsCaseSensitiveAndRaw(t *testing.T) {
	idx := mustBuild(t, index.Document{"id": "D1", "text": "Strawberry"})

	// Exact stage normalises "STRAWBERRY"; prefix and fuzzy see the raw
	// upper-case literal and match nothing.
	assert.Equal(t, ranker.BoostExact, scoreOf(Query(idx, "STRAWBERRY", 0), "D1"))

	// "Straw" is neither a normalised term nor a lower-case prefix.
	assert.Empty(t, Query(idx, "Straw", 0))
	assert.Equal(t, ranker.BoostPrefix, scoreOf(Query(idx, "straw", 0), "D1"))
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	idx := mustBuild(t, index.Document{"id": "D1", "text": "a b c"})
	assert.Empty(t, Query(idx, "", 10))
}

func TestNoMatchIsEmpty(t *testing.T) {
	idx := mustBuild(t, index.Document{"id": "D1", "text": "apple"})
	hits := Query(idx, "zzzzzzzz", 10)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestMultipleTermsAccumulate(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "both", "text": "apple pie"},
		index.Document{"id": "one", "text": "apple tart"},
	)
	hits := Query(idx, "apple pie", 0)
	assert.Equal(t, []string{"both", "one"}, ranker.Refs(hits))
	assert.Equal(t, 2*ranker.BoostExact, scoreOf(hits, "both"))
}

func TestTruncation(t *testing.T) {
	var docs []index.Document
	for i := 0; i < 30; i++ {
		text := "apple"
		if i%3 == 0 {
			text = "apple apple"
		}
		docs = append(docs, index.Document{"id": fmt.Sprintf("doc-%02d", i), "text": text})
	}
	idx := mustBuild(t, docs...)
	hits := Query(idx, "apple", 10)
	require.Len(t, hits, 10)
	assert.Equal(t, []string{
		"doc-00", "doc-03", "doc-06", "doc-09", "doc-12",
		"doc-15", "doc-18", "doc-21", "doc-24", "doc-27",
	}, ranker.Refs(hits))
}

func TestRoundTripFidelity(t *testing.T) {
	idx := mustBuild(t,
		index.Document{"id": "1", "text": "The quick brown fox jumps over the lazy dog"},
		index.Document{"id": "2", "text": "Quick thinking, quicker action"},
		index.Document{"id": "3", "text": "brown bread and brownies"},
		index.Document{"id": "4", "text": "dogs, doge, and a lazy cat"},
		index.Document{"id": "5"},
	)
	data, err := segment.Encode(idx)
	require.NoError(t, err)
	decoded, err := segment.Decode(data)
	require.NoError(t, err)

	queries := []string{"", "quick", "Quick", "qui", "brwn", "brown dog", "dog", "do", "lazy cat", "xyz", "the", "!!!", "brownies"}
	for _, q := range queries {
		for _, limit := range []int{0, 1, 3, 25} {
			assert.Equal(t, Query(idx, q, limit), Query(decoded, q, limit), "query %q limit %d", q, limit)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"aple", "apple", 1},
		{"apple", "apple", 0},
		{"flaw", "lawn", 2},
		{"crème", "creme", 1},
	}
	for _, tt := range tests {
		got := levenshtein([]rune(tt.a), []rune(tt.b), 100)
		assert.Equal(t, tt.want, got, "%q vs %q", tt.a, tt.b)
	}
	assert.True(t, withinDistance([]rune("aple"), "apple", 2))
	assert.False(t, withinDistance([]rune("kitten"), "sitting", 2))
	assert.False(t, withinDistance([]rune("a"), "abcd", 2))
}

func BenchmarkExecute(b *testing.B) {
	docs := make([]index.Document, 1000)
	for i := range docs {
		docs[i] = index.Document{"id": fmt.Sprintf("doc-%d", i), "text": fmt.Sprintf("search engine distributed indexing term%d query processing", i)}
	}
	idx := mustBuild(b, docs...)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Query(idx, "serch", 25)
	}
}
