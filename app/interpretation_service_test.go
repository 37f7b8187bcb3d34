package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/domain/importance"
	"pdlens/domain/report"
	"pdlens/internal/config"
	apperrors "pdlens/internal/errors"
	"pdlens/internal/testkit"
	"pdlens/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type mockReportWriter struct{ mock.Mock }

func (m *mockReportWriter) WriteReport(ctx context.Context, doc *report.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

type mockPlotRenderer struct{ mock.Mock }

func (m *mockPlotRenderer) RenderPlots(ctx context.Context, s *importance.Summary, doc *report.Document) ([]string, error) {
	args := m.Called(ctx, s, doc)
	return args.Get(0).([]string), args.Error(1)
}

type mockSummaryExporter struct{ mock.Mock }

func (m *mockSummaryExporter) ExportSummary(ctx context.Context, s *importance.Summary, doc *report.Document) (string, error) {
	args := m.Called(ctx, s, doc)
	return args.String(0), args.Error(1)
}

func fastSettings() Settings {
	s := SettingsFromConfig(config.Default().Analysis)
	s.TopK = 10
	s.Trees = 20
	s.PermutationRepeats = 3
	return s
}

func cohort(t *testing.T) *dataset.Dataset {
	t.Helper()
	g, err := testkit.NewCohortGenerator(testkit.DefaultCohortConfig())
	require.NoError(t, err)
	ds, err := g.Generate()
	require.NoError(t, err)
	return ds
}

func TestAllRankedScorersPutSeparableColumnFirst(t *testing.T) {
	ds := testkit.ToyDataset()
	models, err := TrainDefaultModels(context.Background(), ds, ModelSettings{Seed: 42, Workers: 2})
	require.NoError(t, err)

	svc := NewInterpretationService()
	set := SettingsFromConfig(config.Default().Analysis)
	results, sel, err := svc.score(context.Background(), ds, ds, models, set)
	require.NoError(t, err)
	assert.True(t, sel.Scored)

	for _, m := range importance.RankedMethods {
		scores := results[m].RankingScores()
		require.Len(t, scores, 4, m)
		assert.Equal(t, testkit.SeparableColumn, floats.MaxIdx(scores), "%s: %v", m.Label(), scores)
	}
	assert.Len(t, results[importance.MethodMutualInfo].Scores, 4)
	assert.Len(t, results[importance.MethodLinearL1].Scores, 4)
	assert.NotEmpty(t, results[importance.MethodPermutation].ModelName)
}

func TestAnalyzeFullPipeline(t *testing.T) {
	ctx := context.Background()
	kit := testkit.NewTestKit()

	reports := &mockReportWriter{}
	reports.On("WriteReport", mock.Anything, mock.Anything).Return("out/parkinson_feature_importance_report.md", nil)
	plots := &mockPlotRenderer{}
	plots.On("RenderPlots", mock.Anything, mock.Anything, mock.Anything).Return([]string{"out/a.png", "out/b.png"}, nil)
	exporter := &mockSummaryExporter{}
	exporter.On("ExportSummary", mock.Anything, mock.Anything, mock.Anything).Return("out/feature_importance_summary.xlsx", nil)

	svc := NewInterpretationService(
		WithReportWriter(reports),
		WithPlotRenderer(plots),
		WithSummaryExporter(exporter),
		WithRunRepository(kit.RunRepository()),
	)

	ds := cohort(t)
	res, err := svc.Analyze(ctx, AnalysisRequest{Dataset: ds, Settings: fastSettings()})
	require.NoError(t, err)

	reports.AssertExpectations(t)
	plots.AssertExpectations(t)
	exporter.AssertExpectations(t)
	assert.Len(t, res.Artifacts, 4)

	assert.Len(t, res.Summary.Methods(), 4)
	assert.Len(t, res.Summary.Rows, 40)
	assert.Len(t, res.Results, 6)

	top := res.Summary.ForMethod("F-statistic")[0].FeatureName
	assert.True(t, strings.Contains(top, "Putamen_L") || strings.Contains(top, "Precentral_motor"), top)

	doc := res.Document
	assert.Contains(t, []string{ModelLogisticL2, ModelRandomForest}, doc.BestModel)
	assert.Equal(t, 60, doc.Samples)
	assert.Equal(t, 51, doc.Features)
	assert.LessOrEqual(t, len(doc.TopFeatures), ReportTopFeatures)
	assert.NotEmpty(t, doc.Categories)
	assert.NotEmpty(t, doc.TopROIs)
	assert.Len(t, doc.Combined, CombinedTop)
	assert.NotEmpty(t, doc.Parkinson.MotorFeatures)

	saved, err := kit.RunRepository().GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Record.Fingerprint, saved.Fingerprint)
	assert.Equal(t, 6, saved.Params.ROICount)
}

func TestAnalyzeIsReproducible(t *testing.T) {
	svc := NewInterpretationService()
	a, err := svc.Analyze(context.Background(), AnalysisRequest{Dataset: cohort(t), Settings: fastSettings()})
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), AnalysisRequest{Dataset: cohort(t), Settings: fastSettings()})
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Summary.Fingerprint(), b.Summary.Fingerprint())
	assert.Equal(t, a.Record.Fingerprint, b.Record.Fingerprint)
}

func TestAnalyzeSynthesisesNamesFromROICount(t *testing.T) {
	ds := cohort(t)
	ds.FeatureNames = nil
	ds.ROILabels = nil

	res, err := NewInterpretationService().Analyze(context.Background(), AnalysisRequest{Dataset: ds, ROICount: 6, Settings: fastSettings()})
	require.NoError(t, err)
	for _, r := range res.Summary.Rows {
		assert.True(t, strings.HasPrefix(r.FeatureName, "ROI_") || strings.HasPrefix(r.FeatureName, "FC_ROI_"), r.FeatureName)
	}
}

func TestAnalyzeLeavesCallerDatasetUntouched(t *testing.T) {
	ds := cohort(t)
	ds.FeatureNames = nil
	ds.ROILabels = nil

	res, err := NewInterpretationService().Analyze(context.Background(), AnalysisRequest{Dataset: ds, ROICount: 6, Settings: fastSettings()})
	require.NoError(t, err)
	require.NotEmpty(t, res.Summary.Rows)
	assert.Nil(t, ds.FeatureNames)
}

func TestAnalyzeRejectsNonFiniteMatrix(t *testing.T) {
	tests := []struct {
		name string
		edit func(req *AnalysisRequest)
	}{
		{"NaN in dataset", func(req *AnalysisRequest) { req.Dataset.X.Set(3, 1, math.NaN()) }},
		{"Inf in dataset", func(req *AnalysisRequest) { req.Dataset.X.Set(0, 0, math.Inf(-1)) }},
		{"NaN in held-out set", func(req *AnalysisRequest) {
			test := cohort(t)
			test.X.Set(2, 2, math.NaN())
			req.Test = test
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := AnalysisRequest{Dataset: cohort(t), Settings: fastSettings()}
			tt.edit(&req)
			_, err := NewInterpretationService().Analyze(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
			assert.ErrorIs(t, err, core.ErrNonFinite)
		})
	}
}

func TestAnalyzeRejectsMismatchedLayout(t *testing.T) {
	ds := cohort(t)
	ds.FeatureNames = nil

	_, err := NewInterpretationService().Analyze(context.Background(), AnalysisRequest{Dataset: ds, ROICount: 5, Settings: fastSettings()})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDimensionMismatch, apperrors.GetCode(err))
}

func TestAnalyzeRejectsMismatchedNames(t *testing.T) {
	ds := cohort(t)
	ds.FeatureNames = ds.FeatureNames[:10]

	_, err := NewInterpretationService().Analyze(context.Background(), AnalysisRequest{Dataset: ds, Settings: fastSettings()})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDimensionMismatch, apperrors.GetCode(err))
}

func TestAnalyzeNeedsNamesOrROICount(t *testing.T) {
	x := mat.NewDense(8, 7, nil)
	for i := 0; i < 8; i++ {
		for j := 0; j < 7; j++ {
			x.Set(i, j, float64(i*j%5))
		}
	}
	ds, err := dataset.New(x, []float64{0, 1, 0, 1, 0, 1, 0, 1})
	require.NoError(t, err)

	_, err = NewInterpretationService().Analyze(context.Background(), AnalysisRequest{Dataset: ds, Settings: fastSettings()})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestAnalyzeValidatesRequest(t *testing.T) {
	svc := NewInterpretationService()
	_, err := svc.Analyze(context.Background(), AnalysisRequest{Settings: fastSettings()})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))

	set := fastSettings()
	set.TopK = 0
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Dataset: cohort(t), Settings: set})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestAnalyzeUsesSuppliedModelsAndHeldOutSet(t *testing.T) {
	ds := cohort(t)
	train, test, err := SplitTrainTest(ds, 0.25, 1)
	require.NoError(t, err)
	models, err := TrainDefaultModels(context.Background(), train, ModelSettings{Trees: 10, Seed: 1})
	require.NoError(t, err)
	models = append([]ports.NamedModel{{Name: "broken", Model: &testkit.FakeClassifier{Err: errors.New("x")}}}, models...)

	res, err := NewInterpretationService().Analyze(context.Background(), AnalysisRequest{
		Dataset:  train,
		Test:     test,
		Models:   models,
		Settings: fastSettings(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, "broken", res.Selection.Model.Name)
	assert.Equal(t, train.Rows(), res.Document.Samples)
}

func TestAnalyzeReportFailureIsReported(t *testing.T) {
	reports := &mockReportWriter{}
	reports.On("WriteReport", mock.Anything, mock.Anything).Return("", apperrors.IOError("report.md", errors.New("read-only")))

	_, err := NewInterpretationService(WithReportWriter(reports)).Analyze(context.Background(), AnalysisRequest{Dataset: cohort(t), Settings: fastSettings()})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOError, apperrors.GetCode(err))
}
