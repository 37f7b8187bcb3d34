package univariate

import (
	"sort"

	"pdlens/domain/importance"
)

// SelectKBest returns the column indices of the k highest scores in
// descending score order. k is clamped to the score count; ties keep
// ascending index order and NaN scores come last.
func SelectKBest(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return importance.Outranks(scores[idx[a]], scores[idx[b]])
	})
	return idx[:k]
}

// WithSelection records the top-k indices on a univariate result.
func WithSelection(r importance.Result, k int) importance.Result {
	r.Selected = SelectKBest(r.Scores, k)
	return r
}
