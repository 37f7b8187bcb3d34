package app

import (
	"fmt"

	"pdlens/domain/core"
	"pdlens/internal"
	"pdlens/ports"

	"gonum.org/v1/gonum/mat"
)

// Selection is the outcome of best-model selection.
type Selection struct {
	Model ports.NamedModel
	Score float64
	// Scored is false when every model failed and the first one was
	// returned as a fallback.
	Scored bool
}

// SelectBestModel scores each model on the held-out set and returns the one
// with the highest accuracy. A model must beat the running best, which
// starts at 0, so a tie keeps the earlier model. Models whose Score errors
// or panics are skipped with a warning. When none qualifies the first model
// is returned.
func SelectBestModel(models []ports.NamedModel, X mat.Matrix, y []float64, logger *internal.Logger) (Selection, error) {
	if len(models) == 0 {
		return Selection{}, core.ErrNoModels
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	best := Selection{Model: models[0]}
	bestScore := 0.0
	for _, m := range models {
		score, err := safeScore(m.Model, X, y)
		if err != nil {
			logger.Warn("could not evaluate %s: %v", m.Name, err)
			continue
		}
		logger.Debug("model %s accuracy %.4f", m.Name, score)
		if score > bestScore {
			bestScore = score
			best = Selection{Model: m, Score: score, Scored: true}
		}
	}
	return best, nil
}

func safeScore(model ports.Classifier, X mat.Matrix, y []float64) (score float64, err error) {
	if model == nil {
		return 0, core.ErrNotFitted
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("score panicked: %v", r)
		}
	}()
	return model.Score(X, y)
}
