// Package univariate scores each feature independently against the class
// label. No model is fit.
package univariate

import (
	"fmt"
	"math"
	"sort"

	"pdlens/domain/core"
	"pdlens/domain/importance"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FClassif computes the one-way ANOVA F-statistic of every column of X
// grouped by the 0/1 labels in y, together with its p-value.
//
// A column with zero within-class variance and a non-zero between-class
// difference scores +Inf with p-value 0. A constant column scores 0.
func FClassif(X mat.Matrix, y []float64) (importance.Result, error) {
	rows, cols := X.Dims()
	if rows != len(y) {
		return importance.Result{}, fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(y))
	}
	groups := groupIndex(y)
	k := len(groups)
	if k < 2 {
		return importance.Result{}, fmt.Errorf("%w: need at least two classes", core.ErrInvalidLabels)
	}
	if rows <= k {
		return importance.Result{}, fmt.Errorf("%w: %d samples for %d classes", core.ErrInsufficientData, rows, k)
	}

	dfBetween := float64(k - 1)
	dfWithin := float64(rows - k)
	fDist := distuv.F{D1: dfBetween, D2: dfWithin}

	scores := make([]float64, cols)
	pValues := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		f, p := columnF(col, groups, dfBetween, dfWithin, fDist)
		scores[j] = f
		pValues[j] = p
	}

	return importance.Result{
		Method:  importance.MethodFStatistic,
		Scores:  scores,
		PValues: pValues,
	}, nil
}

// columnF accumulates squared deviations from the column and group means
// so the ratio is unchanged by shifting or rescaling the column.
func columnF(col []float64, groups [][]int, dfBetween, dfWithin float64, fDist distuv.F) (float64, float64) {
	n := float64(len(col))
	var mean, maxAbs float64
	for _, v := range col {
		mean += v
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	mean /= n

	var ssTotal, ssBetween, ssWithin float64
	for _, v := range col {
		d := v - mean
		ssTotal += d * d
	}
	for _, idx := range groups {
		var gm float64
		for _, i := range idx {
			gm += col[i]
		}
		gm /= float64(len(idx))
		d := gm - mean
		ssBetween += float64(len(idx)) * d * d
		for _, i := range idx {
			w := col[i] - gm
			ssWithin += w * w
		}
	}

	floor := roundingFloor(n, maxAbs)
	if ssTotal <= floor || ssBetween <= floor {
		return 0, 1
	}
	if ssWithin <= floor {
		return math.Inf(1), 0
	}
	f := (ssBetween / dfBetween) / (ssWithin / dfWithin)
	return f, 1 - fDist.CDF(f)
}

// roundingFloor bounds the sum of squared deviations that rounding alone
// can produce for n values of magnitude at most maxAbs.
func roundingFloor(n, maxAbs float64) float64 {
	const eps = 0x1p-52
	d := 4 * n * eps * maxAbs
	return n * d * d
}

// groupIndex maps each distinct label to the row indices carrying it, in
// ascending label order.
func groupIndex(y []float64) [][]int {
	byLabel := make(map[float64][]int)
	for i, v := range y {
		byLabel[v] = append(byLabel[v], i)
	}
	labels := make([]float64, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	out := make([][]int, len(labels))
	for i, l := range labels {
		out[i] = byLabel[l]
	}
	return out
}
