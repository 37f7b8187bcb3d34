// Package permutation measures how much a fitted classifier's accuracy drops
// when one feature column is shuffled.
package permutation

import (
	"context"
	"fmt"
	"sync"

	"pdlens/adapters/ml/forest"
	"pdlens/adapters/rng"
	"pdlens/domain/core"
	"pdlens/domain/importance"
	"pdlens/ports"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
)

// Config holds the permutation settings.
type Config struct {
	Repeats int
	Seed    int64
	Workers int
	// Fallback configures the forest fitted when no model is supplied.
	Fallback forest.Config
}

// Default returns 10 repeats with seed 42.
func Default() Config {
	return Config{Repeats: 10, Seed: 42, Workers: 4, Fallback: forest.ForPermutation()}
}

// FallbackModelName names the model fitted when the caller supplies none.
const FallbackModelName = "Random Forest (permutation fallback)"

// Scorer computes permutation importance.
type Scorer struct {
	cfg Config
}

// New creates a scorer, filling unset fields from Default.
func New(cfg Config) *Scorer {
	def := Default()
	if cfg.Repeats <= 0 {
		cfg.Repeats = def.Repeats
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Fallback.Trees == 0 {
		cfg.Fallback = def.Fallback
		cfg.Fallback.Seed = cfg.Seed
	}
	return &Scorer{cfg: cfg}
}

// Importance shuffles every column Repeats times and reports the mean and
// population standard deviation of the accuracy drop. When model is nil a
// fallback forest is fitted on (X, y) first. The model's Score must be safe
// for concurrent use when Workers > 1.
func (s *Scorer) Importance(ctx context.Context, model ports.Classifier, X mat.Matrix, y []float64) (importance.Result, error) {
	rows, cols := X.Dims()
	if rows != len(y) || rows == 0 {
		return importance.Result{}, fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(y))
	}

	name := ""
	if model == nil {
		fallback := forest.New(s.cfg.Fallback)
		if err := fallback.Fit(ctx, X, y); err != nil {
			return importance.Result{}, fmt.Errorf("fit fallback forest: %w", err)
		}
		model = fallback
		name = FallbackModelName
	}

	baseline, err := model.Score(X, y)
	if err != nil {
		return importance.Result{}, fmt.Errorf("baseline score: %w", err)
	}

	means := make([]float64, cols)
	stds := make([]float64, cols)
	errs := make([]error, cols)

	streams := rng.New()
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var wg sync.WaitGroup

	for j := 0; j < cols; j++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return importance.Result{}, err
		}
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			defer sem.Release(1)
			r := streams.Stream(rng.StreamName("feature", j), s.cfg.Seed)
			means[j], stds[j], errs[j] = s.column(ctx, model, X, y, j, baseline, r.Perm)
		}(j)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return importance.Result{}, err
	}
	for j, err := range errs {
		if err != nil {
			return importance.Result{}, fmt.Errorf("feature %d: %w", j, err)
		}
	}

	return importance.Result{
		Method:    importance.MethodPermutation,
		Scores:    means,
		Std:       stds,
		ModelName: name,
	}, nil
}

func (s *Scorer) column(ctx context.Context, model ports.Classifier, X mat.Matrix, y []float64, j int, baseline float64, perm func(int) []int) (float64, float64, error) {
	work := mat.DenseCopyOf(X)
	rows, _ := work.Dims()
	original := mat.Col(nil, j, X)
	shuffled := make([]float64, rows)

	drops := make(stats.Float64Data, 0, s.cfg.Repeats)
	for rep := 0; rep < s.cfg.Repeats; rep++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		for i, p := range perm(rows) {
			shuffled[i] = original[p]
		}
		work.SetCol(j, shuffled)
		score, err := model.Score(work, y)
		if err != nil {
			return 0, 0, err
		}
		drops = append(drops, baseline-score)
	}

	mean, err := stats.Mean(drops)
	if err != nil {
		return 0, 0, err
	}
	std, err := stats.StandardDeviationPopulation(drops)
	if err != nil {
		return 0, 0, err
	}
	return mean, std, nil
}
