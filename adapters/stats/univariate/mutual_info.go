package univariate

import (
	"fmt"
	"math"
	"sort"

	"pdlens/domain/core"
	"pdlens/domain/importance"

	"gonum.org/v1/gonum/mat"
)

// DefaultBins is the quantile bin count used to discretise features.
const DefaultBins = 10

// MutualInfoClassif estimates I(X_j; y) in nats for every column by
// discretising the feature into quantile bins. Scores are non-negative.
// The bin count is capped so each bin holds at least MinPerBin samples.
func MutualInfoClassif(X mat.Matrix, y []float64, bins int) (importance.Result, error) {
	rows, cols := X.Dims()
	if rows != len(y) {
		return importance.Result{}, fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(y))
	}
	if rows == 0 {
		return importance.Result{}, core.ErrInsufficientData
	}
	if bins <= 1 {
		bins = DefaultBins
	}
	bins = effectiveBins(bins, rows)

	yBins := make([]int, rows)
	for i, v := range y {
		yBins[i] = int(v)
	}
	hY := entropy(yBins)

	scores := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		xBins := discretize(col, bins)
		mi := entropy(xBins) + hY - jointEntropy(xBins, yBins)
		scores[j] = math.Max(0, mi)
	}

	return importance.Result{
		Method: importance.MethodMutualInfo,
		Scores: scores,
	}, nil
}

// MinPerBin is the smallest expected quantile bin population.
const MinPerBin = 3

// effectiveBins caps bins at rows/MinPerBin, never below two.
func effectiveBins(bins, rows int) int {
	if limit := rows / MinPerBin; limit < bins {
		bins = limit
	}
	if bins < 2 {
		bins = 2
	}
	return bins
}

// discretize assigns each value to a quantile bin in [0, numBins).
func discretize(data []float64, numBins int) []int {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	out := make([]int, len(data))
	for i, val := range data {
		bin := 0
		for b := 1; b < numBins; b++ {
			threshold := sorted[(len(sorted)*b)/numBins]
			if val >= threshold {
				bin = b
			} else {
				break
			}
		}
		out[i] = bin
	}
	return out
}

func entropy(bins []int) float64 {
	counts := make(map[int]int)
	for _, b := range bins {
		counts[b]++
	}
	n := float64(len(bins))
	h := 0.0
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log(p)
	}
	return h
}

func jointEntropy(a, b []int) float64 {
	type cell struct{ a, b int }
	counts := make(map[cell]int)
	for i := range a {
		counts[cell{a[i], b[i]}]++
	}
	n := float64(len(a))
	h := 0.0
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log(p)
	}
	return h
}
