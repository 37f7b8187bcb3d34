package markdown

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/interpret"
	"pdlens/domain/report"
	"pdlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *report.Document {
	return &report.Document{
		RunID:       core.RunID("run-1"),
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		BestModel:   "Random Forest",
		BestScore:   0.9,
		Samples:     60,
		Features:    51,
		TopFeatures: []report.FeatureAggregate{
			{Name: "ROI_000_mean_activity", MeanScore: 0.51234, MeanRank: 1.5, Methods: 2, Category: interpret.CategoryMeanActivity, Interpretation: "Basal ganglia dysfunction - core PD pathology"},
			{Name: "FC_ROI_000_ROI_001", MeanScore: 0.25, MeanRank: 3, Methods: 1, Category: interpret.CategoryConnectivity, Interpretation: "Altered brain network connectivity"},
		},
		Categories: []report.CategoryStat{
			{Category: interpret.CategoryConnectivity, Count: 1, Mean: 0.25},
			{Category: interpret.CategoryMeanActivity, Count: 2, Mean: 0.51234, Std: 0.1},
		},
	}
}

func TestRenderIncludesRequiredSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleDocument()))
	out := buf.String()

	for _, heading := range []string{
		"# Parkinson's Disease fMRI Classification - Feature Importance Report",
		"## Executive Summary",
		"## Best Performing Model: Random Forest",
		"## Top 15 Most Important Features (Averaged Across Methods)",
		"## Feature Type Analysis",
		"## Clinical Implications",
		"## Recommendations for Future Research",
		"## Technical Notes",
	} {
		assert.Contains(t, out, heading)
	}

	assert.Contains(t, out, " 1. **ROI_000_mean_activity**\n    - Type: ROI Mean Activity\n    - Importance Score: 0.5123\n    - Average Rank: 1.5\n")
	assert.Contains(t, out, " 2. **FC_ROI_000_ROI_001**")
	assert.Contains(t, out, "| Functional Connectivity | 1 | 0.2500 | 0.0000 |")
	assert.Contains(t, out, "| ROI Mean Activity | 2 | 0.5123 | 0.1000 |")
	assert.Contains(t, out, "- Run run-1: 60 samples, 51 features, generated 2024-03-01 12:00:00 UTC")
	assert.True(t, strings.HasSuffix(out, "*Report generated automatically by Parkinson's fMRI Analysis Pipeline*\n"))
}

func TestRenderWithoutRunMetadata(t *testing.T) {
	doc := sampleDocument()
	doc.RunID = ""

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc))
	assert.NotContains(t, buf.String(), "- Run ")
}

func TestRenderRejectsNilDocument(t *testing.T) {
	err := Render(&bytes.Buffer{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestWriteReportReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	got, err := NewWriter(dir, nil).WriteReport(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Parkinson's Disease"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteReportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWriter(t.TempDir(), nil).WriteReport(ctx, sampleDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.1235", formatScore(0.12346))
	assert.Equal(t, "inf", formatScore(math.Inf(1)))
	assert.Equal(t, "nan", formatScore(math.NaN()))
}
