package postgres

import (
	"context"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/run"
	apperrors "pdlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *run.Record {
	return &run.Record{
		ID:          core.NewRunID(),
		CreatedAt:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		Samples:     60,
		Features:    51,
		BestModel:   "Random Forest",
		BestScore:   0.875,
		Params:      run.Parameters{ROICount: 6, TopK: 2, SelectK: 50, Seed: 42, PermutationRepeats: 10, Trees: 100, MaxDepth: 10, MIBins: 10, TestFraction: 0.25},
		Fingerprint: core.NewHash([]byte("fp")),
		Summary:     &importance.Summary{
			TopK: 2,
			Rows: []importance.Row{
				{Method: "F-statistic", Rank: 1, FeatureIndex: 4, FeatureName: "ROI_000_mean_activity", Score: 9.5, Category: interpret.CategoryMeanActivity},
				{Method: "F-statistic", Rank: 2, FeatureIndex: 7, FeatureName: "FC_ROI_000_ROI_001", Score: 3.1, Category: interpret.CategoryConnectivity},
			},
		},
	}
}

func TestRowConversionRoundTrip(t *testing.T) {
	rec := sampleRecord()

	row, rows, err := toRows(rec)
	require.NoError(t, err)
	assert.Equal(t, string(rec.ID), row.ID)
	assert.Equal(t, 2, row.TopK)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[1].Ordinal)
	assert.Equal(t, row.ID, rows[1].RunID)

	summary := []importance.Row{rows[0].Row, rows[1].Row}
	back, err := fromRow(row, summary)
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestFromRowRejectsBadParameters(t *testing.T) {
	_, err := fromRow(runRow{ID: "x", Parameters: []byte("{")}, nil)
	assert.Error(t, err)
}

func TestFindMigrationFilesSortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_first.sql":  {Data: []byte("SELECT 1;")},
		"migrations/readme.txt":     {Data: []byte("ignored")},
		"migrations/bad.sql":        {Data: []byte("ignored")},
	}

	files, err := findMigrationFiles(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "first", files[0].Name)
	assert.Equal(t, "SELECT 2;", files[1].SQL)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := findMigrationFiles(migrationFiles)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0].SQL, "analysis_runs")
	assert.Contains(t, files[1].SQL, "summary_rows")
}

func TestCalculateChecksum(t *testing.T) {
	assert.Equal(t, calculateChecksum([]byte("a")), calculateChecksum([]byte("a")))
	assert.NotEqual(t, calculateChecksum([]byte("a")), calculateChecksum([]byte("b")))
	assert.Len(t, calculateChecksum(nil), 64)
}

func TestSaveRunRequiresID(t *testing.T) {
	repo := &RunRepositoryImpl{}
	err := repo.SaveRun(context.Background(), &run.Record{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationError, apperrors.GetCode(err))
}

// TestRunRepositoryIntegration runs against a live database when
// PDLENS_TEST_DATABASE_URL is set.
func TestRunRepositoryIntegration(t *testing.T) {
	url := os.Getenv("PDLENS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping live test: PDLENS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Connect(ctx, url)
	require.NoError(t, err)
	defer db.Close()

	status, err := NewMigrator(db).Status(ctx)
	require.NoError(t, err)
	for _, s := range status {
		assert.True(t, s.Applied, s.Version)
	}

	repo := NewRunRepository(db)
	rec := sampleRecord()
	require.NoError(t, repo.SaveRun(ctx, rec))
	defer db.ExecContext(ctx, "DELETE FROM analysis_runs WHERE id = $1", string(rec.ID))

	got, err := repo.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Summary.Rows, got.Summary.Rows)
	assert.Equal(t, rec.Params, got.Params)
	assert.Equal(t, rec.Fingerprint, got.Fingerprint)

	list, err := repo.ListRuns(ctx, 50)
	require.NoError(t, err)
	found := false
	for _, r := range list {
		if r.ID == rec.ID {
			found = true
		}
	}
	assert.True(t, found)

	_, err = repo.GetRun(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrNotFound)
}
