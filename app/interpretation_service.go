package app

import (
	"context"
	"fmt"
	"time"

	"pdlens/adapters/ml/forest"
	"pdlens/adapters/ml/logistic"
	"pdlens/adapters/ml/permutation"
	"pdlens/adapters/stats/univariate"
	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/domain/feature"
	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/report"
	"pdlens/domain/run"
	"pdlens/internal"
	"pdlens/internal/config"
	"pdlens/internal/errors"
	"pdlens/ports"
)

// Settings are the tunable parameters of one interpretation run.
type Settings struct {
	TopK               int
	SelectK            int
	Seed               int64
	PermutationRepeats int
	Trees              int
	MaxDepth           int
	MIBins             int
	Workers            int
	TestFraction       float64
	RankAllMethods     bool
}

// SettingsFromConfig copies the analysis section of the configuration.
func SettingsFromConfig(c config.AnalysisConfig) Settings {
	return Settings{
		TopK:               c.TopK,
		SelectK:            c.SelectK,
		Seed:               c.Seed,
		PermutationRepeats: c.PermutationRepeats,
		Trees:              c.Trees,
		MaxDepth:           c.MaxDepth,
		MIBins:             c.MIBins,
		Workers:            c.Workers,
		TestFraction:       c.TestFraction,
		RankAllMethods:     c.RankAllMethods,
	}
}

// AnalysisRequest defines the inputs of an interpretation run
type AnalysisRequest struct {
	Dataset *dataset.Dataset
	// Test is the held-out set for model selection. When nil the dataset
	// is split with Settings.TestFraction.
	Test *dataset.Dataset
	// ROICount builds the feature names when the dataset carries none.
	// Zero means infer it exactly from the column count.
	ROICount  int
	ROILabels []string
	// Models are the caller's trained classifiers in preference order.
	// When empty the default suite is trained.
	Models   []ports.NamedModel
	Settings Settings
}

// AnalysisResult contains the complete output of an interpretation run
type AnalysisResult struct {
	RunID     core.RunID          `json:"run_id"`
	Summary   *importance.Summary `json:"summary"`
	Results   importance.Results  `json:"-"`
	Document  *report.Document    `json:"insights"`
	Selection Selection           `json:"-"`
	Artifacts []string            `json:"artifacts,omitempty"`
	Record    *run.Record         `json:"-"`
	RuntimeMs int64               `json:"runtime_ms"`
}

// InterpretationService runs every importance method over a dataset and
// turns the scores into a summary table and Parkinson's-oriented insights
type InterpretationService struct {
	logger      *internal.Logger
	interpreter *interpret.Interpreter
	reports     ports.ReportWriter
	plots       ports.PlotRenderer
	exporter    ports.SummaryExporter
	runs        ports.RunRepository
}

// Option configures an InterpretationService.
type Option func(*InterpretationService)

// WithReportWriter writes the markdown report after each run.
func WithReportWriter(w ports.ReportWriter) Option {
	return func(s *InterpretationService) { s.reports = w }
}

// WithPlotRenderer renders plots after each run.
func WithPlotRenderer(p ports.PlotRenderer) Option {
	return func(s *InterpretationService) { s.plots = p }
}

// WithSummaryExporter exports the summary table after each run.
func WithSummaryExporter(e ports.SummaryExporter) Option {
	return func(s *InterpretationService) { s.exporter = e }
}

// WithRunRepository persists each finished run.
func WithRunRepository(r ports.RunRepository) Option {
	return func(s *InterpretationService) { s.runs = r }
}

// WithInterpreter replaces the default categorisation rules.
func WithInterpreter(in *interpret.Interpreter) Option {
	return func(s *InterpretationService) { s.interpreter = in }
}

// WithLogger replaces the default logger.
func WithLogger(l *internal.Logger) Option {
	return func(s *InterpretationService) { s.logger = l }
}

// NewInterpretationService creates an interpretation service
func NewInterpretationService(opts ...Option) *InterpretationService {
	s := &InterpretationService{
		logger:      internal.DefaultLogger,
		interpreter: interpret.Default,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent("interpretation")
	return s
}

// Runs returns the configured run repository, if any.
func (s *InterpretationService) Runs() ports.RunRepository {
	return s.runs
}

// Analyze executes the full pipeline: naming, splitting, model selection,
// the six importance methods, aggregation, insights and outputs.
func (s *InterpretationService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	startTime := time.Now()
	if req.Dataset == nil || req.Dataset.X == nil {
		return nil, errors.InvalidInput("dataset is required")
	}
	set := req.Settings
	if set.TopK <= 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("top-k must be positive, got %d", set.TopK))
	}
	if err := dataset.CheckFinite(req.Dataset.X); err != nil {
		return nil, errors.Wrap(err, "dataset")
	}
	if req.Test != nil {
		if req.Test.X == nil {
			return nil, errors.InvalidInput("held-out set has no feature matrix")
		}
		if err := dataset.CheckFinite(req.Test.X); err != nil {
			return nil, errors.Wrap(err, "held-out set")
		}
	}

	names, layout, err := s.resolveNames(req)
	if err != nil {
		return nil, err
	}
	// the caller's dataset keeps its own names
	named := *req.Dataset
	named.FeatureNames = names
	ds := &named

	train, test := ds, req.Test
	if test == nil {
		train, test, err = SplitTrainTest(ds, set.TestFraction, set.Seed)
		if err != nil {
			return nil, errors.Wrap(err, "splitting dataset")
		}
	} else if test.Columns() != ds.Columns() {
		return nil, errors.Wrap(core.NewDimensionError(test.Columns(), ds.Columns()), "held-out set")
	}
	s.logger.Info("analyzing %d features on %d training and %d held-out samples", ds.Columns(), train.Rows(), test.Rows())

	models := req.Models
	if len(models) == 0 {
		s.logger.Info("no trained models supplied, fitting default suite")
		models, err = TrainDefaultModels(ctx, train, ModelSettings{Trees: set.Trees, MaxDepth: set.MaxDepth, Seed: set.Seed, Workers: set.Workers})
		if err != nil {
			return nil, err
		}
	}

	results, selection, err := s.score(ctx, train, test, models, set)
	if err != nil {
		return nil, err
	}

	summary, err := BuildSummary(results, names, set.TopK, SummaryOptions{RankAllMethods: set.RankAllMethods, Interpreter: s.interpreter})
	if err != nil {
		return nil, err
	}

	runID := core.NewRunID()
	doc := s.buildDocument(summary, results, names, layout, selection)
	doc.RunID = runID
	doc.GeneratedAt = startTime.UTC()
	doc.Samples = ds.Rows()
	doc.Features = ds.Columns()

	artifacts, err := s.writeOutputs(ctx, summary, doc)
	if err != nil {
		return nil, err
	}

	params := run.Parameters{
		ROICount:           layout.ROICount(),
		TopK:               set.TopK,
		SelectK:            set.SelectK,
		Seed:               set.Seed,
		PermutationRepeats: set.PermutationRepeats,
		Trees:              set.Trees,
		MaxDepth:           set.MaxDepth,
		MIBins:             set.MIBins,
		TestFraction:       set.TestFraction,
	}
	rec := &run.Record{
		ID:          runID,
		CreatedAt:   doc.GeneratedAt,
		Samples:     ds.Rows(),
		Features:    ds.Columns(),
		BestModel:   selection.Model.Name,
		BestScore:   selection.Score,
		Params:      params,
		Fingerprint: params.Fingerprint(summary.Fingerprint()),
		Summary:     summary,
	}
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, rec); err != nil {
			return nil, errors.Wrap(err, "saving run")
		}
	}

	runtime := time.Since(startTime)
	s.logger.Info("run %s finished in %v (best model %s, fingerprint %s)", runID, runtime, selection.Model.Name, rec.Fingerprint.Short())

	return &AnalysisResult{
		RunID:     runID,
		Summary:   summary,
		Results:   results,
		Document:  doc,
		Selection: selection,
		Artifacts: artifacts,
		Record:    rec,
		RuntimeMs: runtime.Milliseconds(),
	}, nil
}

// resolveNames returns the feature names aligned with the matrix columns
// and the ROI layout used to parse them.
func (s *InterpretationService) resolveNames(req AnalysisRequest) ([]string, feature.Layout, error) {
	ds := req.Dataset
	cols := ds.Columns()
	labels := req.ROILabels
	if len(labels) == 0 {
		labels = ds.ROILabels
	}

	nROIs := req.ROICount
	if nROIs == 0 {
		inferred, err := feature.InferROICount(cols)
		if err != nil {
			if len(ds.FeatureNames) == 0 {
				return nil, feature.Layout{}, errors.Wrap(err, "no feature names and ROI count cannot be inferred")
			}
			s.logger.Debug("column count %d does not match an ROI layout; ROI insights disabled", cols)
		}
		nROIs = inferred
	}
	if len(labels) == 0 && len(ds.FeatureNames) > 0 {
		if recovered, ok := feature.LabelsFromNames(ds.FeatureNames, nROIs); ok {
			labels = recovered
		}
	}

	var layout feature.Layout
	if nROIs > 0 {
		l, err := feature.NewLayout(nROIs, labels)
		if err != nil {
			return nil, feature.Layout{}, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "building feature layout"))
		}
		layout = l
	}

	if len(ds.FeatureNames) > 0 {
		if len(ds.FeatureNames) != cols {
			return nil, feature.Layout{}, errors.Wrap(core.NewDimensionError(len(ds.FeatureNames), cols), "feature names")
		}
		return ds.FeatureNames, layout, nil
	}
	if err := layout.Validate(cols); err != nil {
		return nil, feature.Layout{}, errors.Wrapf(err, "layout for %d ROIs", nROIs)
	}
	return layout.Names(), layout, nil
}

// score runs the six importance methods. Univariate, linear and tree
// scores use the training set; the best model on the held-out set drives
// permutation importance on the training set.
func (s *InterpretationService) score(ctx context.Context, train, test *dataset.Dataset, models []ports.NamedModel, set Settings) (importance.Results, Selection, error) {
	results := make(importance.Results)
	X, y := train.X, train.Labels

	s.logger.Debug("scoring univariate F-statistic and mutual information")
	fRes, err := univariate.FClassif(X, y)
	if err != nil {
		return nil, Selection{}, errors.Wrap(err, "F-statistic")
	}
	results[importance.MethodFStatistic] = univariate.WithSelection(fRes, set.SelectK)

	miRes, err := univariate.MutualInfoClassif(X, y, set.MIBins)
	if err != nil {
		return nil, Selection{}, errors.Wrap(err, "mutual information")
	}
	results[importance.MethodMutualInfo] = univariate.WithSelection(miRes, set.SelectK)

	s.logger.Debug("fitting L1 and L2 logistic regressions")
	for _, lm := range []struct {
		method importance.Method
		cfg    logistic.Config
	}{
		{importance.MethodLinearL1, logistic.DefaultL1()},
		{importance.MethodLinearL2, logistic.DefaultL2()},
	} {
		lm.cfg.Seed = set.Seed
		m := logistic.New(lm.cfg)
		if err := m.Fit(ctx, X, y); err != nil {
			return nil, Selection{}, errors.ModelError(lm.method.Label(), err)
		}
		coef, err := m.Coefficients()
		if err != nil {
			return nil, Selection{}, errors.ModelError(lm.method.Label(), err)
		}
		results[lm.method] = importance.Result{Method: lm.method, Scores: coef, ModelName: lm.method.Label()}
	}

	s.logger.Debug("fitting random forest with %d trees", set.Trees)
	fc := forest.Default()
	fc.Trees, fc.MaxDepth, fc.Seed, fc.Workers = set.Trees, set.MaxDepth, set.Seed, set.Workers
	rf := forest.New(fc)
	if err := rf.Fit(ctx, X, y); err != nil {
		return nil, Selection{}, errors.ModelError(importance.MethodTree.Label(), err)
	}
	imp, err := rf.FeatureImportances()
	if err != nil {
		return nil, Selection{}, errors.ModelError(importance.MethodTree.Label(), err)
	}
	results[importance.MethodTree] = importance.Result{Method: importance.MethodTree, Scores: imp, ModelName: importance.MethodTree.Label()}

	selection, err := SelectBestModel(models, test.X, test.Labels, s.logger)
	if err != nil {
		return nil, Selection{}, errors.Wrap(err, "selecting best model")
	}
	s.logger.Info("using %s for permutation importance (held-out accuracy %.4f)", selection.Model.Name, selection.Score)

	pc := permutation.Default()
	pc.Repeats, pc.Seed, pc.Workers = set.PermutationRepeats, set.Seed, set.Workers
	pc.Fallback.Seed = set.Seed
	perm, err := permutation.New(pc).Importance(ctx, selection.Model.Model, X, y)
	if err != nil {
		return nil, Selection{}, errors.ModelError(importance.MethodPermutation.Label(), err)
	}
	if perm.ModelName == "" {
		perm.ModelName = selection.Model.Name
	}
	results[importance.MethodPermutation] = perm

	return results, selection, nil
}

func (s *InterpretationService) buildDocument(summary *importance.Summary, results importance.Results, names []string, layout feature.Layout, sel Selection) *report.Document {
	features := AggregateFeatures(summary, s.interpreter)
	if len(features) > ReportTopFeatures {
		features = features[:ReportTopFeatures]
	}
	return &report.Document{
		BestModel:    sel.Model.Name,
		BestScore:    sel.Score,
		TopFeatures:  features,
		Categories:   CategoryStats(summary),
		TopROIs:      ROIContributions(summary, layout, TopROIs),
		Connections:  Connections(summary, layout, TopConnections),
		Parkinson:    ParkinsonGroups(summary, layout),
		Combined:     CombinedRanking(results, names, CombinedTop, s.interpreter),
		ScatterPairs: ScatterPoints(results, names, s.interpreter),
	}
}

func (s *InterpretationService) writeOutputs(ctx context.Context, summary *importance.Summary, doc *report.Document) ([]string, error) {
	var artifacts []string
	if s.reports != nil {
		path, err := s.reports.WriteReport(ctx, doc)
		if err != nil {
			return nil, errors.Wrap(err, "writing report")
		}
		s.logger.Info("feature report saved: %s", path)
		artifacts = append(artifacts, path)
	}
	if s.plots != nil {
		paths, err := s.plots.RenderPlots(ctx, summary, doc)
		if err != nil {
			return nil, errors.Wrap(err, "rendering plots")
		}
		artifacts = append(artifacts, paths...)
	}
	if s.exporter != nil {
		path, err := s.exporter.ExportSummary(ctx, summary, doc)
		if err != nil {
			return nil, errors.Wrap(err, "exporting summary")
		}
		artifacts = append(artifacts, path)
	}
	return artifacts, nil
}
