package app

import (
	"fmt"
	"sort"

	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/internal/errors"
)

// SummaryOptions tune BuildSummary.
type SummaryOptions struct {
	// RankAllMethods also ranks mutual information and L1 coefficients.
	RankAllMethods bool
	Interpreter    *interpret.Interpreter
}

// BuildSummary ranks every available method result by descending score and
// keeps the top-k rows per method. Coefficient methods rank by magnitude
// and report the magnitude as their score. Ties keep ascending feature
// index order. k larger than the feature count is clamped; k <= 0 fails.
func BuildSummary(results importance.Results, names []string, topK int, opts SummaryOptions) (*importance.Summary, error) {
	if topK <= 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("top-k must be positive, got %d", topK))
	}
	in := opts.Interpreter
	if in == nil {
		in = interpret.Default
	}
	methods := importance.RankedMethods
	if opts.RankAllMethods {
		methods = importance.AllMethods
	}

	summary := &importance.Summary{TopK: topK}
	for _, m := range methods {
		res, ok := results[m]
		if !ok {
			continue
		}
		scores := res.RankingScores()
		for rank, idx := range rankIndices(scores, topK) {
			name := featureName(names, idx)
			summary.Rows = append(summary.Rows, importance.Row{
				Method:       m.Label(),
				Rank:         rank + 1,
				FeatureIndex: idx,
				FeatureName:  name,
				Score:        scores[idx],
				Category:     in.Categorize(name),
			})
		}
	}
	return summary, nil
}

// rankIndices returns the indices of the k largest scores, best first.
func rankIndices(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return importance.Outranks(scores[idx[a]], scores[idx[b]])
	})
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

func featureName(names []string, idx int) string {
	if idx >= 0 && idx < len(names) && names[idx] != "" {
		return names[idx]
	}
	return fmt.Sprintf("Feature_%d", idx)
}
