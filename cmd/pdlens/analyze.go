package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdlens/adapters/excel"
	"pdlens/adapters/jsonsource"
	"pdlens/adapters/postgres"
	"pdlens/adapters/report/markdown"
	"pdlens/adapters/report/plots"
	"pdlens/app"
	"pdlens/ports"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	input        string
	labelColumn  string
	sheet        string
	rois         int
	roiLabels    string
	topK         int
	out          string
	seed         int64
	trees        int
	repeats      int
	workers      int
	allMethods   bool
	keepHeaders  bool
	skipPlots    bool
	featuresPath string
	labelsPath   string
}

func newAnalyzeCmd(state *cliState) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Rank features with six importance methods and write the report",
		Long: `Fit the default models, score every feature with univariate, linear,
tree and permutation importance, then write the markdown report, plots and
summary workbook into the output directory.

Inputs: .csv and .xlsx files with a label column, .json documents with
features/labels arrays, or an http(s) URL serving such a document.

Example: pdlens analyze --input cohort.csv --rois 116 --roi-labels aal.txt --out results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runAnalyze(cmd.Context(), state, opts, cmd.OutOrStdout()); err != nil {
				state.logger.Error("feature interpretation failed: %v", err)
				fmt.Fprintln(cmd.ErrOrStderr(), "❌ Error in feature interpretation; see the log for details")
				return errAnalyzeFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "Dataset file (.csv, .xlsx, .json) or http(s) URL")
	f.StringVar(&opts.labelColumn, "label-column", excel.DefaultLabelColumn, "Header of the class label column (csv/xlsx)")
	f.StringVar(&opts.sheet, "sheet", "", "Workbook sheet to read (default from PDLENS_SHEET)")
	f.IntVar(&opts.rois, "rois", 0, "Number of ROIs used to synthesise feature names (0 = infer)")
	f.StringVar(&opts.roiLabels, "roi-labels", "", "File with one ROI label per line")
	f.IntVar(&opts.topK, "top-k", 0, "Features kept per method (default from PDLENS_TOP_K)")
	f.StringVar(&opts.out, "out", "", "Output directory (default from PDLENS_OUTPUT_DIR)")
	f.Int64Var(&opts.seed, "seed", 0, "Random seed (default from PDLENS_SEED)")
	f.IntVar(&opts.trees, "trees", 0, "Random forest size (default from PDLENS_TREES)")
	f.IntVar(&opts.repeats, "repeats", 0, "Permutation repeats (default from PDLENS_PERMUTATION_REPEATS)")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent workers (default from PDLENS_WORKERS)")
	f.BoolVar(&opts.allMethods, "all-methods", false, "Also rank mutual information and L1 coefficients")
	f.BoolVar(&opts.keepHeaders, "keep-headers", false, "Use file headers as feature names even when --rois is set")
	f.BoolVar(&opts.skipPlots, "no-plots", false, "Skip PNG rendering")
	f.StringVar(&opts.featuresPath, "features-path", "", "gjson path of the feature matrix (json input)")
	f.StringVar(&opts.labelsPath, "labels-path", "", "gjson path of the labels (json input)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

var errAnalyzeFailed = fmt.Errorf("analysis failed")

func runAnalyze(ctx context.Context, state *cliState, opts *analyzeOptions, stdout io.Writer) error {
	cfg := state.cfg
	set := app.SettingsFromConfig(cfg.Analysis)
	if opts.topK > 0 {
		set.TopK = opts.topK
	}
	if opts.seed != 0 {
		set.Seed = opts.seed
	}
	if opts.trees > 0 {
		set.Trees = opts.trees
	}
	if opts.repeats > 0 {
		set.PermutationRepeats = opts.repeats
	}
	if opts.workers > 0 {
		set.Workers = opts.workers
	}
	if opts.allMethods {
		set.RankAllMethods = true
	}
	outDir := cfg.Output.Dir
	if opts.out != "" {
		outDir = opts.out
	}
	sheet := cfg.Output.Sheet
	if opts.sheet != "" {
		sheet = opts.sheet
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Analysis.Timeout)
	defer cancel()

	fmt.Fprintln(stdout, "🔍 Adding comprehensive feature interpretation analysis...")

	reader := newDatasetReader(opts, sheet, state)
	ds, err := reader.ReadDataset(ctx)
	if err != nil {
		return err
	}
	if opts.rois > 0 && !opts.keepHeaders {
		ds.FeatureNames = nil
	}

	var labels []string
	if opts.roiLabels != "" {
		if labels, err = readLabelsFile(opts.roiLabels); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	svcOpts := []app.Option{
		app.WithLogger(state.logger),
		app.WithReportWriter(markdown.NewWriter(outDir, state.logger)),
		app.WithSummaryExporter(excel.NewSummaryWriter(outDir, state.logger)),
	}
	if !opts.skipPlots {
		svcOpts = append(svcOpts, app.WithPlotRenderer(plots.NewRenderer(outDir, state.logger)))
	}
	repo, closeRepo, err := openRunRepository(ctx, state)
	if err != nil {
		return err
	}
	defer closeRepo()
	if repo != nil {
		svcOpts = append(svcOpts, app.WithRunRepository(repo))
	}

	result, err := app.NewInterpretationService(svcOpts...).Analyze(ctx, app.AnalysisRequest{
		Dataset:   ds,
		ROICount:  opts.rois,
		ROILabels: labels,
		Settings:  set,
	})
	if err != nil {
		return err
	}

	app.WriteNarrative(stdout, result.Summary, result.Document)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "✅ Feature interpretation analysis complete! (run %s, %v)\n", result.RunID, time.Duration(result.RuntimeMs)*time.Millisecond)
	fmt.Fprintln(stdout, "📁 Generated files:")
	for _, path := range result.Artifacts {
		fmt.Fprintf(stdout, "   - %s\n", path)
	}
	return nil
}

// newDatasetReader picks the adapter from the input's scheme or extension.
func newDatasetReader(opts *analyzeOptions, sheet string, state *cliState) ports.DatasetReader {
	paths := jsonsource.Paths{Features: opts.featuresPath, Labels: opts.labelsPath}
	input := opts.input
	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return jsonsource.NewReader(jsonsource.NewHTTPSource(input, 30*time.Second), paths, state.logger)
	case strings.EqualFold(filepath.Ext(input), ".json"):
		return jsonsource.NewReader(jsonsource.FileSource{Path: input}, paths, state.logger)
	}
	return excel.NewDataReader(input,
		excel.WithSheet(sheet),
		excel.WithLabelColumn(opts.labelColumn),
		excel.WithReaderLogger(state.logger),
	)
}

// readLabelsFile reads one ROI label per non-empty line.
func readLabelsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ROI labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ROI labels: %w", err)
	}
	return labels, nil
}

// openRunRepository connects the Postgres run store when DATABASE_URL is set.
func openRunRepository(ctx context.Context, state *cliState) (ports.RunRepository, func(), error) {
	if !state.cfg.Database.Enabled() {
		return nil, func() {}, nil
	}
	db, err := postgres.Connect(ctx, state.cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	state.logger.Info("persisting runs to postgres")
	return postgres.NewRunRepository(db), func() { db.Close() }, nil
}
