// Package importance holds the per-method scores and the long-form summary
// table produced by an interpretation run.
package importance

import (
	"fmt"
	"math"
	"strings"

	"pdlens/domain/core"
	"pdlens/domain/interpret"
)

// Method identifies an importance technique.
type Method string

const (
	MethodFStatistic  Method = "univariate_f"
	MethodMutualInfo  Method = "univariate_mi"
	MethodLinearL1    Method = "linear_l1"
	MethodLinearL2    Method = "linear_l2"
	MethodTree        Method = "tree_based"
	MethodPermutation Method = "permutation"
)

// Label is the human-readable method name used in tables and plots.
func (m Method) Label() string {
	switch m {
	case MethodFStatistic:
		return "F-statistic"
	case MethodMutualInfo:
		return "Mutual Information"
	case MethodLinearL1:
		return "Logistic Regression L1"
	case MethodLinearL2:
		return "Logistic Regression L2"
	case MethodTree:
		return "Random Forest"
	case MethodPermutation:
		return "Permutation Importance"
	}
	return string(m)
}

// SignedScores reports whether raw scores carry a sign that ranking discards.
func (m Method) SignedScores() bool {
	return m == MethodLinearL1 || m == MethodLinearL2
}

// RankedMethods are the methods summarised by default, in table order.
var RankedMethods = []Method{MethodFStatistic, MethodLinearL2, MethodTree, MethodPermutation}

// AllMethods is every method in table order.
var AllMethods = []Method{MethodFStatistic, MethodMutualInfo, MethodLinearL1, MethodLinearL2, MethodTree, MethodPermutation}

// Result is the output of a single importance method.
type Result struct {
	Method   Method    `json:"method"`
	Scores   []float64 `json:"scores"`
	Std      []float64 `json:"std,omitempty"`      // permutation only
	PValues  []float64 `json:"p_values,omitempty"` // F-test only
	Selected []int     `json:"selected,omitempty"` // univariate top-k indices
	// ModelName names the fitted model the scores came from, when any.
	ModelName string `json:"model_name,omitempty"`
}

// RankingScores returns the scores used for ranking: absolute values for
// signed coefficient methods, raw scores otherwise.
func (r Result) RankingScores() []float64 {
	if !r.Method.SignedScores() {
		return r.Scores
	}
	out := make([]float64, len(r.Scores))
	for i, s := range r.Scores {
		if s < 0 {
			s = -s
		}
		out[i] = s
	}
	return out
}

// Outranks reports whether score a ranks ahead of b: larger first, NaN
// after every number.
func Outranks(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	return a > b
}

// Results accumulates method results for one session.
type Results map[Method]Result

// Row is one line of the long-form summary table.
type Row struct {
	Method       string             `json:"method" db:"method"`
	Rank         int                `json:"rank" db:"rank"`
	FeatureIndex int                `json:"feature_index" db:"feature_index"`
	FeatureName  string             `json:"feature_name" db:"feature_name"`
	Score        float64            `json:"importance_score" db:"importance_score"`
	Category     interpret.Category `json:"feature_type" db:"feature_type"`
}

// Summary is the aggregated top-k table across methods.
type Summary struct {
	TopK int   `json:"top_k"`
	Rows []Row `json:"rows"`
}

// Methods returns the distinct method labels in first-appearance order.
func (s *Summary) Methods() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range s.Rows {
		if !seen[r.Method] {
			seen[r.Method] = true
			out = append(out, r.Method)
		}
	}
	return out
}

// ForMethod returns the rows of one method, in rank order.
func (s *Summary) ForMethod(label string) []Row {
	var out []Row
	for _, r := range s.Rows {
		if r.Method == label {
			out = append(out, r)
		}
	}
	return out
}

// ForCategory returns the rows of one category, in table order.
func (s *Summary) ForCategory(c interpret.Category) []Row {
	var out []Row
	for _, r := range s.Rows {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

// Fingerprint hashes the table contents so identical runs can be recognised.
func (s *Summary) Fingerprint() core.Hash {
	var b strings.Builder
	fmt.Fprintf(&b, "k=%d\n", s.TopK)
	for _, r := range s.Rows {
		fmt.Fprintf(&b, "%s|%d|%d|%s|%.12g|%s\n", r.Method, r.Rank, r.FeatureIndex, r.FeatureName, r.Score, r.Category)
	}
	return core.NewHash([]byte(b.String()))
}
