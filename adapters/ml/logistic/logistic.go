// Package logistic implements penalised binary logistic regression on gonum
// matrices. The objective follows liblinear: penalty(w) + C * sum(logloss).
package logistic

import (
	"context"
	"fmt"
	"math"

	"pdlens/domain/core"
	"pdlens/ports"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Penalty selects the regulariser.
type Penalty string

const (
	L1 Penalty = "l1"
	L2 Penalty = "l2"
)

// Config holds the solver settings.
type Config struct {
	Penalty Penalty
	C       float64
	MaxIter int
	Tol     float64
	// Seed is recorded for reproducibility reports; both solvers are
	// deterministic.
	Seed int64
}

// DefaultL1 is the sparse model used for coefficient importance.
func DefaultL1() Config {
	return Config{Penalty: L1, C: 0.1, MaxIter: 2000, Tol: 1e-6, Seed: 42}
}

// DefaultL2 is the ridge model used for coefficient importance.
func DefaultL2() Config {
	return Config{Penalty: L2, C: 1.0, MaxIter: 2000, Tol: 1e-6, Seed: 42}
}

// Model is a fitted (or unfitted) logistic regression.
type Model struct {
	cfg       Config
	coef      []float64
	intercept float64
	fitted    bool
	iters     int
}

var _ ports.Classifier = (*Model)(nil)

// New creates an unfitted model.
func New(cfg Config) *Model {
	if cfg.C <= 0 {
		cfg.C = 1.0
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 2000
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-6
	}
	if cfg.Penalty == "" {
		cfg.Penalty = L2
	}
	return &Model{cfg: cfg}
}

// Config returns the solver settings.
func (m *Model) Config() Config { return m.cfg }

// Iterations returns how many solver steps the last Fit took.
func (m *Model) Iterations() int { return m.iters }

// Fit minimises the penalised objective by proximal gradient descent: plain
// gradient steps for L2, soft-thresholded steps (ISTA) for L1. The intercept
// is never penalised.
func (m *Model) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(y))
	}
	if rows == 0 || cols == 0 {
		return core.ErrInsufficientData
	}

	step := 1 / m.lipschitz(X)
	w := mat.NewVecDense(cols, nil)
	b := 0.0

	z := mat.NewVecDense(rows, nil)
	r := mat.NewVecDense(rows, nil)
	grad := mat.NewVecDense(cols, nil)
	prev := make([]float64, cols)

	m.iters = 0
	for it := 0; it < m.cfg.MaxIter; it++ {
		if it%50 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.iters = it + 1

		z.MulVec(X, w)
		var gb float64
		for i := 0; i < rows; i++ {
			ri := m.cfg.C * (sigmoid(z.AtVec(i)+b) - y[i])
			r.SetVec(i, ri)
			gb += ri
		}
		grad.MulVec(X.T(), r)

		copy(prev, w.RawVector().Data)
		wd := w.RawVector().Data
		gd := grad.RawVector().Data
		switch m.cfg.Penalty {
		case L1:
			for j := range wd {
				wd[j] = softThreshold(wd[j]-step*gd[j], step)
			}
		default:
			for j := range wd {
				wd[j] -= step * (gd[j] + wd[j])
			}
		}
		db := step * gb
		b -= db

		if maxAbsDiff(prev, wd) < m.cfg.Tol && math.Abs(db) < m.cfg.Tol {
			break
		}
	}

	m.coef = append([]float64(nil), w.RawVector().Data...)
	m.intercept = b
	m.fitted = true
	return nil
}

// lipschitz bounds the gradient's Lipschitz constant by the Frobenius norm
// of the design matrix augmented with the intercept column.
func (m *Model) lipschitz(X mat.Matrix) float64 {
	rows, _ := X.Dims()
	norm := mat.Norm(X, 2)
	l := m.cfg.C * (norm*norm + float64(rows)) / 4
	if m.cfg.Penalty == L2 {
		l++
	}
	if l <= 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return 1
	}
	return l
}

// Coefficients returns a copy of the fitted weights, one per feature.
func (m *Model) Coefficients() ([]float64, error) {
	if !m.fitted {
		return nil, core.ErrNotFitted
	}
	return append([]float64(nil), m.coef...), nil
}

// Intercept returns the fitted bias.
func (m *Model) Intercept() (float64, error) {
	if !m.fitted {
		return 0, core.ErrNotFitted
	}
	return m.intercept, nil
}

// NonZero counts coefficients that are exactly non-zero.
func (m *Model) NonZero() int {
	n := 0
	for _, c := range m.coef {
		if c != 0 {
			n++
		}
	}
	return n
}

// PredictProba returns P(y=1) per row.
func (m *Model) PredictProba(X mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, core.ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(m.coef) {
		return nil, fmt.Errorf("%w: model has %d features, input has %d", core.ErrDimensionMismatch, len(m.coef), cols)
	}
	z := mat.NewVecDense(rows, nil)
	z.MulVec(X, mat.NewVecDense(cols, m.coef))
	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.intercept)
	}
	return out, nil
}

// Predict assigns class 1 when P(y=1) exceeds 0.5.
func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := m.PredictProba(X)
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
func (m *Model) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return Accuracy(pred, y)
}

// Accuracy is the share of matching predictions.
func Accuracy(pred, y []float64) (float64, error) {
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

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	}
	return 0
}

func maxAbsDiff(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}
