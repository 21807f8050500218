package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersAndTruncates(t *testing.T) {
	scores := Scores{}
	scores.Add("b", BoostExact, 1)
	scores.Add("a", BoostExact, 1)
	scores.Add("c", BoostPrefix, 2)
	scores.Add("d", BoostFuzzy, 1)
	scores["zero"] = 0

	hits := Rank(scores, 0)
	assert.Equal(t, []Hit{
		{Ref: "a", Score: 100},
		{Ref: "b", Score: 100},
		{Ref: "c", Score: 20},
		{Ref: "d", Score: 5},
	}, hits)

	assert.Equal(t, []string{"a", "b"}, Refs(Rank(scores, 2)))
}

func TestBoostTiers(t *testing.T) {
	assert.Greater(t, BoostExact, BoostPrefix)
	assert.Greater(t, BoostPrefix, BoostFuzzy)
	assert.Greater(t, BoostFuzzy, 0.0)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(Scores{}, 10))
}
