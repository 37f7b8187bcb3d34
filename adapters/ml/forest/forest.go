// Package forest implements a bootstrap-aggregated ensemble of CART
// classification trees with impurity-based feature importances.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"pdlens/adapters/rng"
	"pdlens/domain/core"
	"pdlens/ports"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
)

// Config holds the ensemble settings.
type Config struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures is the number of features tried per split; 0 means sqrt(p).
	MaxFeatures int
	Seed        int64
	Workers     int
}

// Default is the ensemble used for tree-based importance.
func Default() Config {
	return Config{Trees: 100, MaxDepth: 10, MinSamplesSplit: 2, Seed: 42, Workers: 4}
}

// ForPermutation is the smaller ensemble fitted when permutation importance
// runs without a caller-supplied model.
func ForPermutation() Config {
	cfg := Default()
	cfg.Trees = 50
	return cfg
}

// Forest is a random forest classifier.
type Forest struct {
	cfg         Config
	trees       []*tree
	nFeatures   int
	importances []float64
}

var (
	_ ports.Classifier         = (*Forest)(nil)
	_ ports.FeatureImportancer = (*Forest)(nil)
)

// New creates an unfitted forest.
func New(cfg Config) *Forest {
	def := Default()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Forest{cfg: cfg}
}

// Config returns the ensemble settings.
func (f *Forest) Config() Config { return f.cfg }

// Fit grows the trees concurrently. Each tree draws its bootstrap sample and
// feature subsets from its own stream, so the fitted forest does not depend
// on scheduling.
func (f *Forest) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(y))
	}
	if rows == 0 || cols == 0 {
		return core.ErrInsufficientData
	}
	dense := mat.DenseCopyOf(X)

	mtry := f.cfg.MaxFeatures
	if mtry <= 0 || mtry > cols {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(cols)))))
	}

	streams := rng.New()
	trees := make([]*tree, f.cfg.Trees)
	sem := semaphore.NewWeighted(int64(f.cfg.Workers))
	var wg sync.WaitGroup

	for t := 0; t < f.cfg.Trees; t++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			defer sem.Release(1)

			r := streams.Stream(rng.StreamName("tree", t), f.cfg.Seed)
			b := &treeBuilder{
				x:           dense,
				y:           y,
				maxDepth:    f.cfg.MaxDepth,
				minSplit:    f.cfg.MinSamplesSplit,
				maxFeatures: mtry,
				rng:         r,
			}
			trees[t] = b.grow(bootstrap(r, rows))
		}(t)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	f.trees = trees
	f.nFeatures = cols
	f.importances = aggregateImportances(trees, cols)
	return nil
}

func bootstrap(r *rand.Rand, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.Intn(n)
	}
	return out
}

// aggregateImportances averages the per-tree normalised importances over
// trees that split at least once and renormalises the mean.
func aggregateImportances(trees []*tree, cols int) []float64 {
	out := make([]float64, cols)
	used := 0
	for _, t := range trees {
		imp := t.normalisedImportances()
		if imp == nil {
			continue
		}
		used++
		for j, v := range imp {
			out[j] += v
		}
	}
	if used == 0 {
		return out
	}
	total := 0.0
	for j := range out {
		out[j] /= float64(used)
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// FeatureImportances returns the mean decrease in impurity per feature.
func (f *Forest) FeatureImportances() ([]float64, error) {
	if f.trees == nil {
		return nil, core.ErrNotFitted
	}
	return append([]float64(nil), f.importances...), nil
}

// PredictProba averages the class-1 leaf shares over all trees.
func (f *Forest) PredictProba(X mat.Matrix) ([]float64, error) {
	if f.trees == nil {
		return nil, core.ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != f.nFeatures {
		return nil, fmt.Errorf("%w: model has %d features, input has %d", core.ErrDimensionMismatch, f.nFeatures, cols)
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		sum := 0.0
		for _, t := range f.trees {
			sum += t.proba(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

// Predict assigns class 1 when the mean probability exceeds 0.5.
func (f *Forest) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Score returns the accuracy on (X, y).
func (f *Forest) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) || len(y) == 0 {
		return 0, fmt.Errorf("%w: %d predictions for %d labels", core.ErrInsufficientData, len(pred), len(y))
	}
	hits := 0
	for i := range y {
		if pred[i] == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(y)), nil
}
