package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdlens/adapters/excel"
	"pdlens/adapters/jsonsource"
	"pdlens/adapters/report/markdown"
	"pdlens/domain/core"
	"pdlens/domain/interpret"
	"pdlens/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "ERROR")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNamesCommand(t *testing.T) {
	out, _, err := execute(t, "names", "--rois", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "ROI_000_mean_activity", lines[0])
	assert.Equal(t, "FC_ROI_000_ROI_001", lines[6])
	assert.Equal(t, "ROI_001_high_freq_power", lines[12])
}

func TestNamesCommand_WithLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("Putamen_L\n\nCaudate_R\n"), 0o644))

	out, _, err := execute(t, "names", "--rois", "2", "--roi-labels", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FC_Putamen_L_Caudate_R")
}

func TestNamesCommand_RejectsBadCount(t *testing.T) {
	for _, n := range []string{"0", "1001", "200000"} {
		out, _, err := execute(t, "names", "--rois", n)
		assert.ErrorIs(t, err, core.ErrInvalidROICount, n)
		assert.Empty(t, out)
	}
}

func TestCategorizeCommand(t *testing.T) {
	out, _, err := execute(t, "categorize", "Putamen_L_mean_activity", "FC_a_b")
	require.NoError(t, err)
	assert.Contains(t, out, "BIOLOGICAL RELEVANCE")
	assert.Contains(t, out, string(interpret.CategoryMeanActivity))
	assert.Contains(t, out, string(interpret.CategoryConnectivity))
}

func TestWriteCategories(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCategories(&buf, interpret.Default, []string{"ROI_000_low_freq_power", "age"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "FEATURE"))
	assert.Contains(t, lines[1], string(interpret.CategoryFrequency))
	assert.Contains(t, lines[2], string(interpret.CategoryOther))
}

func TestReadLabelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("  a \n\nb\n\t\nc"), 0o644))

	labels, err := readLabelsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, labels)

	_, err = readLabelsFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestNewDatasetReader(t *testing.T) {
	state := &cliState{logger: internal.NewLogger(internal.LogLevelError)}

	tests := []struct {
		input string
		json  bool
	}{
		{"cohort.csv", false},
		{"cohort.xlsx", false},
		{"cohort.JSON", true},
		{"https://example.org/cohort", true},
		{"http://localhost:8080/cohort.csv", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			reader := newDatasetReader(&analyzeOptions{input: tt.input, labelColumn: "label"}, "", state)
			if tt.json {
				assert.IsType(t, &jsonsource.Reader{}, reader)
			} else {
				assert.IsType(t, &excel.DataReader{}, reader)
			}
		})
	}
}

func TestSynthThenAnalyze(t *testing.T) {
	dir := t.TempDir()
	cohort := filepath.Join(dir, "cohort.csv")
	out := filepath.Join(dir, "results")

	synthOut, _, err := execute(t, "synth", "--out", cohort, "--subjects", "40")
	require.NoError(t, err)
	assert.Contains(t, synthOut, "40 subjects")

	stdout, _, err := execute(t, "analyze",
		"--input", cohort,
		"--out", out,
		"--top-k", "5",
		"--trees", "10",
		"--repeats", "2",
		"--workers", "2",
		"--no-plots",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Feature interpretation analysis complete")

	report, err := os.ReadFile(filepath.Join(out, markdown.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Best Performing Model")
	assert.FileExists(t, filepath.Join(out, excel.SummaryFileName))
}

func TestAnalyzeFailureIsGeneric(t *testing.T) {
	_, stderr, err := execute(t, "analyze", "--input", filepath.Join(t.TempDir(), "missing.csv"), "--out", t.TempDir())
	require.ErrorIs(t, err, errAnalyzeFailed)
	assert.Contains(t, stderr, "Error in feature interpretation")
}
