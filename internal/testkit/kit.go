package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pdlens/adapters/rng"
	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/domain/run"
	"pdlens/ports"

	"gonum.org/v1/gonum/mat"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	runs *InMemoryRunRepository // Shared run store
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{runs: NewInMemoryRunRepository()}
}

// RunRepository returns the shared in-memory run store
func (t *TestKit) RunRepository() ports.RunRepository {
	return t.runs
}

// RNGAdapter returns a deterministic RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.New()
}

// SeparableColumn is the only informative column of ToyDataset.
const SeparableColumn = 2

// ToyDataset returns a 10x4 matrix whose column 2 separates the classes
// while columns 0, 1 and 3 are noise with near-identical class means.
func ToyDataset() *dataset.Dataset {
	rows := [][]float64{
		{0.5, -1.2, -2.1, 0.3},
		{-0.7, 0.8, -1.9, -0.4},
		{1.1, 0.1, -2.3, 0.9},
		{-0.3, -0.5, -1.8, -1.0},
		{0.2, 0.9, -2.0, 0.2},
		{-0.4, 1.0, 2.2, -0.2},
		{0.6, -0.9, 1.9, 0.8},
		{-1.0, 0.3, 2.1, -0.7},
		{0.9, -0.2, 1.8, 0.5},
		{0.1, -0.6, 2.0, -0.3},
	}
	labels := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	ds, err := dataset.FromRows(rows, labels)
	if err != nil {
		panic(fmt.Sprintf("testkit: toy dataset: %v", err))
	}
	ds.FeatureNames = []string{"noise_a", "noise_b", "signal", "noise_c"}
	return ds
}

// FakeClassifier is a scripted classifier for model selection tests.
type FakeClassifier struct {
	Accuracy float64
	Err      error
	Panic    bool
	Fitted   bool
}

var _ ports.Classifier = (*FakeClassifier)(nil)

func (f *FakeClassifier) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	f.Fitted = true
	return ctx.Err()
}

func (f *FakeClassifier) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	return make([]float64, r), nil
}

func (f *FakeClassifier) Score(X mat.Matrix, y []float64) (float64, error) {
	if f.Panic {
		panic("fake classifier: scripted panic")
	}
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Accuracy, nil
}

// InMemoryRunRepository implements ports.RunRepository with in-memory storage
type InMemoryRunRepository struct {
	runs  map[core.RunID]*run.Record
	order []core.RunID
	mu    sync.RWMutex
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*run.Record)}
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func (s *InMemoryRunRepository) SaveRun(ctx context.Context, rec *run.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("run record requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.runs[rec.ID] = rec
	return nil
}

func (s *InMemoryRunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return rec, nil
}

// ListRuns returns the newest runs first.
func (s *InMemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*run.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
