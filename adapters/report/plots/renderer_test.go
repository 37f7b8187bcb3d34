package plots

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() *importance.Summary {
	return &importance.Summary{
		TopK: 2,
		Rows: []importance.Row{
			{Method: "F-statistic", Rank: 1, FeatureIndex: 2, FeatureName: "FC_ROI_000_ROI_001", Score: math.Inf(1), Category: interpret.CategoryConnectivity},
			{Method: "F-statistic", Rank: 2, FeatureIndex: 0, FeatureName: "ROI_000_mean_activity", Score: 4.2, Category: interpret.CategoryMeanActivity},
			{Method: "Permutation Importance", Rank: 1, FeatureIndex: 0, FeatureName: "ROI_000_mean_activity", Score: 0.12, Category: interpret.CategoryMeanActivity},
			{Method: "Permutation Importance", Rank: 2, FeatureIndex: 1, FeatureName: "ROI_000_std_activity", Score: -0.01, Category: interpret.CategoryVariability},
		},
	}
}

func TestRenderPlotsWritesPNGs(t *testing.T) {
	dir := t.TempDir()
	doc := &report.Document{
		ScatterPairs: []report.ScatterPoint{
			{Name: "ROI_000_mean_activity", Category: interpret.CategoryMeanActivity, FScore: 4.2, Permutation: 0.12},
			{Name: "ROI_000_std_activity", Category: interpret.CategoryVariability, FScore: 0.3, Permutation: -0.01},
		},
	}

	paths, err := NewRenderer(dir, nil).RenderPlots(context.Background(), sampleSummary(), doc)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, ImportanceFile),
		filepath.Join(dir, DistributionFile),
		filepath.Join(dir, ComparisonFile),
	}, paths)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Greater(t, len(data), 8)
		assert.Equal(t, "\x89PNG", string(data[:4]), p)
	}
}

func TestRenderPlotsWithoutScatterPoints(t *testing.T) {
	paths, err := NewRenderer(t.TempDir(), nil).RenderPlots(context.Background(), sampleSummary(), nil)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}

func TestRenderPlotsRejectsEmptySummary(t *testing.T) {
	_, err := NewRenderer(t.TempDir(), nil).RenderPlots(context.Background(), &importance.Summary{}, nil)
	assert.Error(t, err)

	_, err = NewRenderer(t.TempDir(), nil).RenderPlots(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestRenderPlotsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer(t.TempDir(), nil).RenderPlots(ctx, sampleSummary(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiniteCapsInfinity(t *testing.T) {
	assert.Equal(t, []float64{3, 3, 0, 1}, finite([]float64{math.Inf(1), 3, math.NaN(), 1}))
	assert.Equal(t, []float64{1}, finite([]float64{math.Inf(1)}))
}

func TestCategoryColorIsStable(t *testing.T) {
	assert.Equal(t, categoryColor(interpret.CategoryFrequency), categoryColor(interpret.CategoryFrequency))
	assert.NotEqual(t, categoryColor(interpret.CategoryFrequency), categoryColor(interpret.CategoryConnectivity))
}
