package app

import (
	"context"

	"pdlens/adapters/ml/forest"
	"pdlens/adapters/ml/logistic"
	"pdlens/domain/dataset"
	"pdlens/internal/errors"
	"pdlens/ports"
)

// Model display names.
const (
	ModelLogisticL2   = "Logistic Regression"
	ModelRandomForest = "Random Forest"
)

// ModelSettings configure the default model suite.
type ModelSettings struct {
	Trees    int
	MaxDepth int
	Seed     int64
	Workers  int
}

// TrainDefaultModels fits the fallback suite used when a caller supplies no
// trained models: an L2 logistic regression and a random forest, in that
// order.
func TrainDefaultModels(ctx context.Context, train *dataset.Dataset, s ModelSettings) ([]ports.NamedModel, error) {
	lr := logistic.DefaultL2()
	lr.Seed = s.Seed
	lrModel := logistic.New(lr)
	if err := lrModel.Fit(ctx, train.X, train.Labels); err != nil {
		return nil, errors.ModelError(ModelLogisticL2, err)
	}

	fc := forest.Default()
	if s.Trees > 0 {
		fc.Trees = s.Trees
	}
	if s.MaxDepth > 0 {
		fc.MaxDepth = s.MaxDepth
	}
	if s.Workers > 0 {
		fc.Workers = s.Workers
	}
	fc.Seed = s.Seed
	rf := forest.New(fc)
	if err := rf.Fit(ctx, train.X, train.Labels); err != nil {
		return nil, errors.ModelError(ModelRandomForest, err)
	}

	return []ports.NamedModel{
		{Name: ModelLogisticL2, Model: lrModel},
		{Name: ModelRandomForest, Model: rf},
	}, nil
}
