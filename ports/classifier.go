package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Classifier is a binary classifier over a dense feature matrix with 0/1
// labels. Score returns accuracy.
type Classifier interface {
	Fit(ctx context.Context, X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
	Score(X mat.Matrix, y []float64) (float64, error)
}

// FeatureImportancer is implemented by models with built-in importances.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}

// NamedModel pairs a trained classifier with its display name. Callers pass
// ordered slices so that "first model" is well defined.
type NamedModel struct {
	Name  string
	Model Classifier
}
