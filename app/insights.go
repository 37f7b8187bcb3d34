package app

import (
	"math"
	"sort"
	"strings"

	"pdlens/domain/feature"
	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/report"

	"github.com/montanaflynn/stats"
)

// Insight sizes.
const (
	ReportTopFeatures  = 15
	ConsoleTopFeatures = 10
	TopROIs            = 10
	TopConnections     = 5
	MotorHits          = 10
	CombinedTop        = 20
)

// AggregateFeatures averages score and rank per feature name across the
// summary rows, keeping the first category seen. The result is sorted by
// mean score descending; ties keep ascending name order.
func AggregateFeatures(summary *importance.Summary, in *interpret.Interpreter) []report.FeatureAggregate {
	if in == nil {
		in = interpret.Default
	}
	type acc struct {
		scores, ranks stats.Float64Data
		category      interpret.Category
	}
	byName := make(map[string]*acc)
	var names []string
	for _, r := range summary.Rows {
		a, ok := byName[r.FeatureName]
		if !ok {
			a = &acc{category: r.Category}
			byName[r.FeatureName] = a
			names = append(names, r.FeatureName)
		}
		a.scores = append(a.scores, r.Score)
		a.ranks = append(a.ranks, float64(r.Rank))
	}
	sort.Strings(names)

	out := make([]report.FeatureAggregate, 0, len(names))
	for _, name := range names {
		a := byName[name]
		meanScore, _ := stats.Mean(a.scores)
		meanRank, _ := stats.Mean(a.ranks)
		out = append(out, report.FeatureAggregate{
			Name:           name,
			MeanScore:      meanScore,
			MeanRank:       meanRank,
			Methods:        len(a.scores),
			Category:       a.category,
			Interpretation: in.Interpret(name),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanScore > out[j].MeanScore
	})
	return out
}

// CategoryStats returns count, mean and sample standard deviation of the
// scores per category, in alphabetical category order. Single-row
// categories report a zero deviation.
func CategoryStats(summary *importance.Summary) []report.CategoryStat {
	byCat := make(map[interpret.Category]stats.Float64Data)
	for _, r := range summary.Rows {
		byCat[r.Category] = append(byCat[r.Category], r.Score)
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	out := make([]report.CategoryStat, 0, len(cats))
	for _, c := range cats {
		scores := byCat[interpret.Category(c)]
		mean, _ := stats.Mean(scores)
		std := 0.0
		if len(scores) > 1 {
			std, _ = stats.StandardDeviationSample(scores)
		}
		out = append(out, report.CategoryStat{
			Category: interpret.Category(c),
			Count:    len(scores),
			Mean:     mean,
			Std:      std,
		})
	}
	return out
}

// ROIContributions averages the scores of per-ROI summary rows by region
// and returns the top n regions. Connectivity rows are excluded because
// they belong to two regions.
func ROIContributions(summary *importance.Summary, layout feature.Layout, n int) []report.ROIContribution {
	byROI := make(map[string]stats.Float64Data)
	for _, r := range summary.Rows {
		roi, ok := layout.ROIOf(r.FeatureName)
		if !ok {
			continue
		}
		byROI[roi] = append(byROI[roi], r.Score)
	}
	out := make([]report.ROIContribution, 0, len(byROI))
	for roi, scores := range byROI {
		mean, _ := stats.Mean(scores)
		out = append(out, report.ROIContribution{ROI: roi, MeanScore: mean, Features: len(scores)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanScore != out[j].MeanScore {
			return out[i].MeanScore > out[j].MeanScore
		}
		return out[i].ROI < out[j].ROI
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Connections returns the first n connectivity rows in table order with
// both regions resolved.
func Connections(summary *importance.Summary, layout feature.Layout, n int) []report.Connection {
	var out []report.Connection
	for _, r := range summary.ForCategory(interpret.CategoryConnectivity) {
		if len(out) == n {
			break
		}
		c := report.Connection{Name: r.FeatureName, Score: r.Score, Method: r.Method}
		if a, b, ok := layout.ParseConnectivity(r.FeatureName); ok {
			c.From, c.To = a, b
		}
		out = append(out, c)
	}
	return out
}

// ParkinsonGroups collects motor and cognitive keyword matches, connectivity
// rows and per-band averages of frequency rows.
func ParkinsonGroups(summary *importance.Summary, layout feature.Layout) report.ParkinsonAnalysis {
	var pa report.ParkinsonAnalysis
	for _, r := range summary.Rows {
		hit := report.RegionHit{Name: r.FeatureName, Score: r.Score, Method: r.Method}
		if interpret.ContainsAny(r.FeatureName, interpret.MotorKeywords) && len(pa.MotorFeatures) < MotorHits {
			pa.MotorFeatures = append(pa.MotorFeatures, hit)
		}
		if interpret.ContainsAny(r.FeatureName, interpret.CognitiveKeywords) && len(pa.CognitiveFeatures) < MotorHits {
			pa.CognitiveFeatures = append(pa.CognitiveFeatures, hit)
		}
	}
	pa.ConnectivityFeatures = Connections(summary, layout, TopConnections)

	freq := summary.ForCategory(interpret.CategoryFrequency)
	for _, band := range feature.Bands {
		var scores stats.Float64Data
		for _, r := range freq {
			if strings.Contains(r.FeatureName, string(band)) {
				scores = append(scores, r.Score)
			}
		}
		if len(scores) == 0 {
			continue
		}
		mean, _ := stats.Mean(scores)
		pa.FrequencyBands = append(pa.FrequencyBands, report.BandSummary{Band: string(band), Count: len(scores), MeanScore: mean})
	}
	return pa
}

// CombinedRanking blends the F-statistic, absolute L2 coefficients and
// permutation importance, each normalised by its maximum, with weights
// 0.3, 0.4 and 0.3. Missing components contribute zero.
func CombinedRanking(results importance.Results, names []string, n int, in *interpret.Interpreter) []report.CombinedEntry {
	if in == nil {
		in = interpret.Default
	}
	f := results[importance.MethodFStatistic].RankingScores()
	coef := results[importance.MethodLinearL2].RankingScores()
	perm := results[importance.MethodPermutation].RankingScores()

	cols := max(len(f), len(coef), len(perm))
	if cols == 0 {
		return nil
	}
	nf, nc, np := normaliseByMax(f, cols), normaliseByMax(coef, cols), normaliseByMax(perm, cols)
	combined := make([]float64, cols)
	for j := range combined {
		combined[j] = 0.3*nf[j] + 0.4*nc[j] + 0.3*np[j]
	}

	out := make([]report.CombinedEntry, 0, n)
	for rank, idx := range rankIndices(combined, n) {
		name := featureName(names, idx)
		out = append(out, report.CombinedEntry{
			Rank:           rank + 1,
			Index:          idx,
			Name:           name,
			Category:       in.Categorize(name),
			Combined:       combined[idx],
			FScore:         at(f, idx),
			Coefficient:    at(coef, idx),
			Permutation:    at(perm, idx),
			Interpretation: in.Interpret(name),
		})
	}
	return out
}

// normaliseByMax divides by the maximum. Infinite entries map to 1 and the
// rest to 0 when the maximum is infinite; a non-positive maximum yields
// zeros.
func normaliseByMax(v []float64, cols int) []float64 {
	out := make([]float64, cols)
	if len(v) == 0 {
		return out
	}
	m := math.Inf(-1)
	for _, x := range v {
		if !math.IsNaN(x) && x > m {
			m = x
		}
	}
	if m <= 0 {
		return out
	}
	for j, x := range v {
		switch {
		case math.IsNaN(x):
		case math.IsInf(m, 1):
			if math.IsInf(x, 1) {
				out[j] = 1
			}
		default:
			out[j] = x / m
		}
	}
	return out
}

func at(v []float64, idx int) float64 {
	if idx < len(v) {
		return v[idx]
	}
	return 0
}

// ScatterPoints pairs the F-statistic and permutation scores per feature.
// Infinite F values are dropped.
func ScatterPoints(results importance.Results, names []string, in *interpret.Interpreter) []report.ScatterPoint {
	if in == nil {
		in = interpret.Default
	}
	f, okF := results[importance.MethodFStatistic]
	p, okP := results[importance.MethodPermutation]
	if !okF || !okP {
		return nil
	}
	n := min(len(f.Scores), len(p.Scores))
	out := make([]report.ScatterPoint, 0, n)
	for j := 0; j < n; j++ {
		if math.IsInf(f.Scores[j], 0) || math.IsNaN(f.Scores[j]) {
			continue
		}
		name := featureName(names, j)
		out = append(out, report.ScatterPoint{
			Name:        name,
			Category:    in.Categorize(name),
			FScore:      f.Scores[j],
			Permutation: p.Scores[j],
		})
	}
	return out
}
