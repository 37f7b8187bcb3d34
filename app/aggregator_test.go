package app

import (
	"math"
	"testing"

	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() importance.Results {
	return importance.Results{
		importance.MethodFStatistic:  {Method: importance.MethodFStatistic, Scores: []float64{1, 5, 3}},
		importance.MethodMutualInfo:  {Method: importance.MethodMutualInfo, Scores: []float64{0.1, 0.2, 0.3}},
		importance.MethodLinearL1:    {Method: importance.MethodLinearL1, Scores: []float64{0, -0.4, 0}},
		importance.MethodLinearL2:    {Method: importance.MethodLinearL2, Scores: []float64{0.2, -0.9, 0.5}},
		importance.MethodTree:        {Method: importance.MethodTree, Scores: []float64{0.2, 0.2, 0.6}},
		importance.MethodPermutation: {Method: importance.MethodPermutation, Scores: []float64{0.05, 0.3, 0.1}},
	}
}

var sampleNames = []string{"ROI_000_mean_activity", "FC_ROI_000_ROI_001", "ROI_001_low_freq_power"}

func TestBuildSummaryRanksEachMethod(t *testing.T) {
	s, err := BuildSummary(sampleResults(), sampleNames, 2, SummaryOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"F-statistic", "Logistic Regression L2", "Random Forest", "Permutation Importance"}, s.Methods())
	require.Len(t, s.Rows, 8)

	f := s.ForMethod("F-statistic")
	assert.Equal(t, 1, f[0].FeatureIndex)
	assert.Equal(t, 1, f[0].Rank)
	assert.Equal(t, 2, f[1].FeatureIndex)
	assert.Equal(t, 2, f[1].Rank)
	assert.Equal(t, interpret.CategoryConnectivity, f[0].Category)

	l2 := s.ForMethod("Logistic Regression L2")
	assert.Equal(t, 1, l2[0].FeatureIndex)
	assert.Equal(t, 0.9, l2[0].Score, "coefficients rank and report by magnitude")

	rf := s.ForMethod("Random Forest")
	assert.Equal(t, []int{2, 0}, []int{rf[0].FeatureIndex, rf[1].FeatureIndex}, "ties keep ascending index")
}

func TestBuildSummaryOrdersNaNLast(t *testing.T) {
	results := importance.Results{
		importance.MethodFStatistic: {Method: importance.MethodFStatistic, Scores: []float64{0.067, math.NaN(), 1303.26}},
	}
	s, err := BuildSummary(results, sampleNames, 3, SummaryOptions{})
	require.NoError(t, err)

	rows := s.ForMethod("F-statistic")
	require.Len(t, rows, 3)
	assert.Equal(t, []int{2, 0, 1}, []int{rows[0].FeatureIndex, rows[1].FeatureIndex, rows[2].FeatureIndex})
	assert.Greater(t, rows[0].Score, rows[1].Score)
	assert.True(t, math.IsNaN(rows[2].Score))
	for i, r := range rows {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestBuildSummaryClampsK(t *testing.T) {
	s, err := BuildSummary(sampleResults(), sampleNames, 50, SummaryOptions{})
	require.NoError(t, err)
	assert.Len(t, s.Rows, 12)
	assert.Equal(t, 50, s.TopK)
	for _, m := range s.Methods() {
		assert.Len(t, s.ForMethod(m), 3)
	}
}

func TestBuildSummaryRejectsNonPositiveK(t *testing.T) {
	for _, k := range []int{0, -3} {
		_, err := BuildSummary(sampleResults(), sampleNames, k, SummaryOptions{})
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	}
}

func TestBuildSummaryFallsBackToIndexNames(t *testing.T) {
	s, err := BuildSummary(sampleResults(), sampleNames[:1], 3, SummaryOptions{})
	require.NoError(t, err)
	f := s.ForMethod("F-statistic")
	assert.Equal(t, "Feature_1", f[0].FeatureName)
	assert.Equal(t, interpret.CategoryOther, f[0].Category)
}

func TestBuildSummaryRankAllMethods(t *testing.T) {
	s, err := BuildSummary(sampleResults(), sampleNames, 1, SummaryOptions{RankAllMethods: true})
	require.NoError(t, err)
	assert.Len(t, s.Methods(), 6)
	assert.Equal(t, 0.4, s.ForMethod("Logistic Regression L1")[0].Score)
}

func TestBuildSummarySkipsMissingMethods(t *testing.T) {
	results := importance.Results{
		importance.MethodTree: {Method: importance.MethodTree, Scores: []float64{0.5, 0.5}},
	}
	s, err := BuildSummary(results, nil, 5, SummaryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Random Forest"}, s.Methods())
	assert.Len(t, s.Rows, 2)
}
