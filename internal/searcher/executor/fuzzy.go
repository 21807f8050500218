package executor

import "unicode/utf8"

// withinDistance reports whether the Levenshtein distance between pattern and
// term is at most maxDist. Insertions, deletions and substitutions each cost 1.
func withinDistance(pattern []rune, term string, maxDist int) bool {
	n := utf8.RuneCountInString(term)
	if abs(len(pattern)-n) > maxDist {
		return false
	}
	return levenshtein(pattern, []rune(term), maxDist) <= maxDist
}

// levenshtein computes the edit distance between a and b with two rolling
// rows. It returns early with a value above bound once every cell of a row
// exceeds bound.
func levenshtein(a, b []rune, bound int) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if rowMin > bound {
			return rowMin
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
